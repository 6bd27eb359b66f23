package weaver

import (
	"log/slog"
	"slices"

	"github.com/funvibe/nameof/internal/il"
)

// SweepResult lists the declarations detached by Sweep
type SweepResult struct {
	Methods []*il.Method
	Fields  []*il.Field
}

// Sweep removes every candidate that no surviving instruction references.
// A method stays if any call-family instruction names it, a field stays if
// any load-field-family instruction reads it; identity decides, never the
// name. References made only from bodies removed in an earlier round no
// longer count, so sweeping repeats until a round removes nothing. Only
// members are removed, their declaring types are kept even when they end
// up empty. The candidate set is consumed.
func Sweep(mod *il.Module, cands *Candidates, log *slog.Logger) SweepResult {
	var res SweepResult
	methods, fields := slices.Clone(cands.Methods()), slices.Clone(cands.Fields())
	for {
		usedMethods, usedFields := references(mod)
		removed := 0

		methods = slices.DeleteFunc(methods, func(m *il.Method) bool {
			if _, used := usedMethods[m]; used || m.DeclaringType == nil {
				return false
			}
			name := m.FullName()
			if !m.DeclaringType.RemoveMethod(m) {
				return false
			}
			log.Info("removed unused method", "method", name)
			res.Methods = append(res.Methods, m)
			removed++
			return true
		})
		fields = slices.DeleteFunc(fields, func(f *il.Field) bool {
			if _, used := usedFields[f]; used || f.DeclaringType == nil {
				return false
			}
			name := f.FullName()
			if !f.DeclaringType.RemoveField(f) {
				return false
			}
			log.Info("removed unused field", "field", name)
			res.Fields = append(res.Fields, f)
			removed++
			return true
		})

		if removed == 0 {
			break
		}
	}
	cands.Reset()
	return res
}

// references collects the methods and fields referenced from the bodies
// still declared in mod.
func references(mod *il.Module) (map[*il.Method]struct{}, map[*il.Field]struct{}) {
	usedMethods := make(map[*il.Method]struct{})
	usedFields := make(map[*il.Field]struct{})
	for _, m := range mod.Methods() {
		b := m.Body
		for id := b.First(); id != il.NoInstr; id = b.Next(id) {
			in := b.At(id)
			if il.IsCallFamily(in.OpCode) && in.Operand.Method != nil {
				usedMethods[in.Operand.Method] = struct{}{}
			}
			if il.IsLoadFieldFamily(in.OpCode) && in.Operand.Field != nil {
				usedFields[in.Operand.Field] = struct{}{}
			}
		}
	}
	return usedMethods, usedFields
}
