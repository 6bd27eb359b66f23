package weaver

import (
	"testing"

	"github.com/funvibe/nameof/internal/il"
)

type closureCase struct {
	want     string
	template string
	// build emits a closure body returning the value whose name is wanted
	build func(f *fixture, dc *il.Type) *il.Method
}

// hoistThis declares the display-class field holding the enclosing instance
func hoistThis(f *fixture, dc *il.Type) *il.Field {
	return dc.AddField(&il.Field{Name: "<>4__this", FieldType: f.prog.FullName()})
}

func closureCases() []closureCase {
	return []closureCase{
		{
			want: "total", template: "captured variable",
			build: func(f *fixture, dc *il.Type) *il.Method {
				total := dc.AddField(&il.Field{Name: "total", FieldType: "int32"})
				lambda := f.closure(dc, "<Run>b__0", false)
				b := lambda.Body
				b.Emit(il.OP_LDARG, il.IntOperand(0))
				b.Emit(il.OP_LDFLD, il.FieldOperand(total))
				b.Emit(il.OP_BOX, il.TypeOperand(f.int32))
				b.Emit(il.OP_RET, il.NoOperand())
				return lambda
			},
		},
		{
			want: "X", template: "parameter field",
			build: func(f *fixture, dc *il.Type) *il.Method {
				point := f.addType("Sample", "Point")
				x := point.AddField(&il.Field{Name: "X", FieldType: "int32"})
				lambda := f.closure(dc, "<Run>b__0", false)
				lambda.Params = []il.Param{{Name: "p", Type: point.FullName()}}
				b := lambda.Body
				b.Emit(il.OP_LDARG, il.IntOperand(1))
				b.Emit(il.OP_LDFLD, il.FieldOperand(x))
				b.Emit(il.OP_BOX, il.TypeOperand(f.int32))
				b.Emit(il.OP_RET, il.NoOperand())
				return lambda
			},
		},
		{
			want: "count", template: "captured field",
			build: func(f *fixture, dc *il.Type) *il.Method {
				this := hoistThis(f, dc)
				count := f.prog.AddField(&il.Field{Name: "count", FieldType: "int32"})
				lambda := f.closure(dc, "<Run>b__0", false)
				b := lambda.Body
				b.Emit(il.OP_LDARG, il.IntOperand(0))
				b.Emit(il.OP_LDFLD, il.FieldOperand(this))
				b.Emit(il.OP_LDFLD, il.FieldOperand(count))
				b.Emit(il.OP_BOX, il.TypeOperand(f.int32))
				b.Emit(il.OP_RET, il.NoOperand())
				return lambda
			},
		},
		{
			want: "Size", template: "captured property",
			build: func(f *fixture, dc *il.Type) *il.Method {
				this := hoistThis(f, dc)
				get := f.prog.AddMethod(&il.Method{Name: "get_Size", ReturnType: "int32"})
				lambda := f.closure(dc, "<Run>b__0", false)
				b := lambda.Body
				b.Emit(il.OP_LDARG, il.IntOperand(0))
				b.Emit(il.OP_LDFLD, il.FieldOperand(this))
				b.Emit(il.OP_CALL, il.MethodOperand(get))
				b.Emit(il.OP_BOX, il.TypeOperand(f.int32))
				b.Emit(il.OP_RET, il.NoOperand())
				return lambda
			},
		},
		{
			want: "Size", template: "instance property",
			build: func(f *fixture, dc *il.Type) *il.Method {
				shape := f.addType("Sample", "Shape")
				get := shape.AddMethod(&il.Method{Name: "get_Size", ReturnType: "int32"})
				lambda := f.closure(dc, "<Run>b__0", false)
				lambda.Params = []il.Param{{Name: "s", Type: shape.FullName()}}
				b := lambda.Body
				b.Emit(il.OP_LDARG, il.IntOperand(1))
				b.Emit(il.OP_CALLVIRT, il.MethodOperand(get))
				b.Emit(il.OP_BOX, il.TypeOperand(f.int32))
				b.Emit(il.OP_RET, il.NoOperand())
				return lambda
			},
		},
		{
			want: "Instances", template: "static field",
			build: func(f *fixture, dc *il.Type) *il.Method {
				inst := f.prog.AddField(&il.Field{Name: "Instances", FieldType: "int32", Static: true})
				lambda := f.closure(dc, "<Run>b__0", false)
				b := lambda.Body
				b.Emit(il.OP_LDSFLD, il.FieldOperand(inst))
				b.Emit(il.OP_BOX, il.TypeOperand(f.int32))
				b.Emit(il.OP_RET, il.NoOperand())
				return lambda
			},
		},
		{
			want: "Now", template: "static property",
			build: func(f *fixture, dc *il.Type) *il.Method {
				get := f.prog.AddMethod(&il.Method{Name: "get_Now", Static: true, ReturnType: "System.DateTime"})
				lambda := f.closure(dc, "<Run>b__0", false)
				b := lambda.Body
				b.Emit(il.OP_CALL, il.MethodOperand(get))
				b.Emit(il.OP_BOX, il.TypeOperand(f.int32))
				b.Emit(il.OP_RET, il.NoOperand())
				return lambda
			},
		},
		{
			want: "Render", template: "captured method group",
			build: func(f *fixture, dc *il.Type) *il.Method {
				this := hoistThis(f, dc)
				render := f.method(f.prog, "Render", false)
				lambda := f.closure(dc, "<Run>b__0", false)
				b := lambda.Body
				b.Emit(il.OP_LDARG, il.IntOperand(0))
				b.Emit(il.OP_LDFLD, il.FieldOperand(this))
				b.Emit(il.OP_LDFTN, il.MethodOperand(render))
				b.Emit(il.OP_NEWOBJ, il.MethodOperand(f.funcCtor))
				b.Emit(il.OP_RET, il.NoOperand())
				return lambda
			},
		},
		{
			want: "Helper", template: "method group",
			build: func(f *fixture, dc *il.Type) *il.Method {
				helper := f.method(f.prog, "Helper", true)
				lambda := f.closure(dc, "<Run>b__0", false)
				b := lambda.Body
				b.Emit(il.OP_LDNULL, il.NoOperand())
				b.Emit(il.OP_LDFTN, il.MethodOperand(helper))
				b.Emit(il.OP_NEWOBJ, il.MethodOperand(f.funcCtor))
				b.Emit(il.OP_RET, il.NoOperand())
				return lambda
			},
		},
		{
			want: "Go", template: "virtual method group",
			build: func(f *fixture, dc *il.Type) *il.Method {
				runner := f.addType("Sample", "Runner")
				goMethod := f.method(runner, "Go", false)
				lambda := f.closure(dc, "<Run>b__0", false)
				lambda.Params = []il.Param{{Name: "r", Type: runner.FullName()}}
				b := lambda.Body
				b.Emit(il.OP_LDARG, il.IntOperand(1))
				b.Emit(il.OP_DUP, il.NoOperand())
				b.Emit(il.OP_LDVIRTFTN, il.MethodOperand(goMethod))
				b.Emit(il.OP_NEWOBJ, il.MethodOperand(f.funcCtor))
				b.Emit(il.OP_RET, il.NoOperand())
				return lambda
			},
		},
		{
			want: "Green", template: "enum member",
			build: func(f *fixture, dc *il.Type) *il.Method {
				color := f.addType("Sample", "Color")
				color.IsEnum = true
				for i, n := range []string{"Red", "Green", "Blue"} {
					v := int64(i)
					color.AddField(&il.Field{Name: n, Static: true, FieldType: "Sample.Color", Constant: &v})
				}
				lambda := f.closure(dc, "<Run>b__0", false)
				b := lambda.Body
				b.Emit(il.OP_LDC_I4, il.IntOperand(1))
				b.Emit(il.OP_BOX, il.TypeOperand(color))
				b.Emit(il.OP_RET, il.NoOperand())
				return lambda
			},
		},
		{
			want: "Repository", template: "type",
			build: func(f *fixture, dc *il.Type) *il.Method {
				repo := f.addType("Sample", "Program/Repository`1")
				lambda := f.closure(dc, "<Run>b__0", false)
				b := lambda.Body
				b.Emit(il.OP_LDTOKEN, il.TypeOperand(repo))
				b.Emit(il.OP_CALL, il.MethodOperand(f.typeFromHandle))
				b.Emit(il.OP_RET, il.NoOperand())
				return lambda
			},
		},
	}
}

func TestClosureTemplates(t *testing.T) {
	seen := make(map[string]bool)
	for _, tt := range closureCases() {
		t.Run(tt.template, func(t *testing.T) {
			f := newFixture()
			dc := f.addType("Sample", "Program/<>c__DisplayClass0_0")
			lambda := tt.build(f, dc)
			w := newTestWeaver()

			ctx := &matchContext{w: w, method: lambda, cands: NewCandidates()}
			m, err := ctx.match(w.closures, lambda.Body.Last())
			if err != nil {
				t.Fatalf("match failed: %v", err)
			}
			if m.Template.Name != tt.template {
				t.Errorf("wrong template. got=%q, want=%q", m.Template.Name, tt.template)
			}
			if m.Name != tt.want {
				t.Errorf("wrong name. got=%q, want=%q", m.Name, tt.want)
			}
			if len(m.Bound) != lambda.Body.Len() {
				t.Errorf("expected the whole body bound, got %d of %d", len(m.Bound), lambda.Body.Len())
			}
			// everything before the ret leaves exactly the returned value
			if net := netStackEffect(lambda.Body, m.Bound[1:]); net != 1 {
				t.Errorf("closure body leaves %d values, want 1", net)
			}

			cands := NewCandidates()
			name, err := w.analyzeClosure(lambda, cands)
			if err != nil || name != tt.want {
				t.Errorf("analyzeClosure = %q, %v", name, err)
			}
			if !cands.HasMethod(lambda) {
				t.Errorf("closure not registered as candidate")
			}
		})
		seen[tt.template] = true
	}

	for _, tmpl := range newTestWeaver().closures.Templates {
		if !seen[tmpl.Name] {
			t.Errorf("closure template %q has no case", tmpl.Name)
		}
	}
}
