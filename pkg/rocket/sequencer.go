package rocket

import (
	"context"
	"strconv"

	"github.com/tilengine/til"
)

func init() {
	til.Register(Module)
}

// sequencerSetup is the baked configuration for a Sequencer context,
// grounded on rkt_setup_t: which module it drives, and the BPM/rows-per-
// beat pair that derives how fast the timeline's row counter advances.
type sequencerSetup struct {
	SeqModule *til.Module
	BPM       uint
	RPB       uint
	RowsPerMs float64
}

type sequencerContext struct {
	til.Context

	device       *Device
	seqModule    *til.Module
	seqModuleCtx any

	row      float64
	lastTick uint
	paused   bool
}

// Module is the til.Module vtable for the sequencer: "sequencer=..." in a
// pipeline settings string installs it as a proxy in front of seq_module,
// driving that module's float taps from Device's tracks.
var Module = &til.Module{
	Name:        "sequencer",
	Description: "Timeline sequencer driving tapped variables from keyframed tracks",
	Author:      "til",
	Flags:       til.ModuleHermetic | til.ModuleExperimental,

	CreateContext: func(module *til.Module, base til.Context) (any, error) {
		s := base.Setup.Value.(*sequencerSetup)

		sc := &sequencerContext{
			Context:   base,
			device:    NewDevice(),
			seqModule: s.SeqModule,
			lastTick:  base.Ticks,
		}

		// Bake the sequenced module's own (empty, default-valued) setup --
		// a real deployment would accept its settings as a nested string,
		// the recursive-settings support the original leaves a TODO for.
		var seqSetup *til.Setup
		if s.SeqModule.Setup != nil {
			if err := s.SeqModule.Setup(til.ParseSettings(""), nil, nil, &seqSetup); err != nil {
				return nil, err
			}
		}
		if seqSetup == nil {
			seqSetup = til.NewSetup(base.Path()+"/"+s.SeqModule.Name, s.SeqModule, nil, nil)
		}

		inner, err := til.NewContext(s.SeqModule, base.Stream, base.Seed, base.Ticks, base.NCPUs, seqSetup)
		seqSetup.Unref()
		if err != nil {
			return nil, err
		}
		sc.seqModuleCtx = inner
		til.AddChild(sc, inner)

		return sc, nil
	},

	RenderProxy: func(goCtx context.Context, ctx any, stream *til.Stream, ticks uint, fragmentPtr **til.Fragment) bool {
		sc := ctx.(*sequencerContext)
		s := sc.Setup.Value.(*sequencerSetup)

		if !sc.paused {
			sc.row += float64(ticks-sc.lastTick) * s.RowsPerMs
		}
		sc.lastTick = ticks

		if stream != nil {
			stream.SetHooks(sc.device.Hooks(), sc.device)
			sc.device.UpdateAll(stream, sc.row)
		}

		til.ModuleRender(goCtx, sc.seqModule, sc.seqModuleCtx, nil, stream, ticks, fragmentPtr)
		return true
	},

	Setup: func(settings *til.Settings, resSetting **til.Setting, resDesc **til.SettingDesc, resSetup **til.Setup) error {
		seqModuleName, ok, err := getStringSetting(settings, resSetting, resDesc, "seq_module", "compose")
		if err != nil || !ok {
			return err
		}

		bpmStr, ok, err := getStringSetting(settings, resSetting, resDesc, "bpm", "125")
		if err != nil || !ok {
			return err
		}

		rpbStr, ok, err := getStringSetting(settings, resSetting, resDesc, "rpb", "8")
		if err != nil || !ok {
			return err
		}

		if resSetup == nil {
			return nil
		}

		if seqModuleName == "sequencer" {
			return til.ErrInvalid
		}

		seqModule := til.Lookup(seqModuleName)
		if seqModule == nil {
			return til.ErrNotExist
		}

		bpm, _ := strconv.ParseUint(bpmStr, 10, 32)
		rpb, _ := strconv.ParseUint(rpbStr, 10, 32)
		if bpm == 0 {
			bpm = 125
		}
		if rpb == 0 {
			rpb = 8
		}

		rowsPerMs := float64(bpm*rpb) * (1.0 / (60.0 * 1000.0))

		*resSetup = til.NewSetup(settings.Serialize(), Module, &sequencerSetup{
			SeqModule: seqModule,
			BPM:       uint(bpm),
			RPB:       uint(rpb),
			RowsPerMs: rowsPerMs,
		}, nil)
		return nil
	},
}

func getStringSetting(settings *til.Settings, resSetting **til.Setting, resDesc **til.SettingDesc, key, preferred string) (string, bool, error) {
	desc := &til.SettingDesc{Name: key, Key: key, Preferred: preferred}
	setting, ok, err := til.GetAndDescribe(settings, desc, resSetting, resDesc)
	if err != nil || !ok {
		return "", false, err
	}
	if setting.Value == nil {
		return preferred, true, nil
	}
	return *setting.Value, true, nil
}
