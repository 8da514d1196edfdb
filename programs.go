package cmaa

import (
	"errors"
	"log/slog"

	"github.com/gogpu/cmaa/gpucore"
	"github.com/gogpu/cmaa/internal/shader"
)

// programSet holds the linked programs and their descriptors. The
// descriptors carry the slot bindings each pass binds its inputs to.
type programSet struct {
	ids   [gpucore.VariantCount]gpucore.ProgramID
	descs [gpucore.VariantCount]gpucore.ProgramDesc
}

func (s *programSet) has(v gpucore.Variant) bool {
	return s.ids[v] != gpucore.InvalidID
}

// binding returns the binding index of the named slot of entry in v.
func (s *programSet) binding(v gpucore.Variant, entry, slot string) (uint32, bool) {
	e, ok := s.descs[v].Entry(entry)
	if !ok {
		return 0, false
	}
	for _, in := range e.Inputs {
		if in.Name == slot {
			return in.Binding, true
		}
	}
	return 0, false
}

// buildPrograms compiles the variants in order. The debug program is built
// only when debug is set. On failure every program built so far is
// destroyed.
func buildPrograms(dev gpucore.Device, d gpucore.Defines, debug bool, log *slog.Logger) (*programSet, error) {
	set := &programSet{}
	for v := gpucore.Variant(0); v < gpucore.VariantCount; v++ {
		if v == gpucore.VariantDebug && !debug {
			continue
		}
		desc, err := shader.Build(v, d)
		if err != nil {
			set.destroy(dev)
			return nil, &ShaderBuildError{Variant: v, Log: err.Error(), Err: err}
		}
		id, err := dev.CreateProgram(desc)
		if err != nil {
			set.destroy(dev)
			be := &ShaderBuildError{Variant: v, Err: err}
			var ce *gpucore.CompileError
			if errors.As(err, &ce) {
				be.Log = ce.Log
			}
			return nil, be
		}
		set.ids[v] = id
		set.descs[v] = desc
		log.Debug("cmaa: program built", "variant", v, "entries", len(desc.Entries))
	}
	return set, nil
}

// destroy releases the programs in reverse build order.
func (s *programSet) destroy(dev gpucore.Device) {
	for v := gpucore.VariantCount; v > 0; v-- {
		if id := s.ids[v-1]; id != gpucore.InvalidID {
			dev.DestroyProgram(id)
			s.ids[v-1] = gpucore.InvalidID
		}
	}
}
