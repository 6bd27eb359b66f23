package patterns

import "github.com/funvibe/nameof/internal/il"

const (
	CallSiteCatalog = "call-site"
	ClosureCatalog  = "closure-body"
)

// CallSites builds the catalog matched backwards from a marker call. Every
// template ends with the marker call itself, so a successful match covers
// the whole argument expression plus the call.
func CallSites(mk Marker) *Catalog {
	call := el(op(il.OP_CALL), mk.markerCall())
	box := opt(op(il.OP_BOX), nil)
	receiver := el(op(il.OP_LDARG, il.OP_LDLOC), nil)
	ctor := el(op(il.OP_NEWOBJ), delegateCtor)

	return NewCatalog(CallSiteCatalog,
		Template{"local", []Element{
			term(op(il.OP_LDLOC), nil, TermLocal), box, call,
		}},
		Template{"parameter", []Element{
			term(op(il.OP_LDARG), notThis, TermParam), box, call,
		}},
		// Also covers locals hoisted into async/iterator state machines.
		Template{"instance field", []Element{
			receiver, term(op(il.OP_LDFLD), nil, TermField), box, call,
		}},
		Template{"static field", []Element{
			term(op(il.OP_LDSFLD), nil, TermField), box, call,
		}},
		Template{"instance property", []Element{
			receiver, term(op(il.OP_CALL, il.OP_CALLVIRT), getter(false), TermGetter), box, call,
		}},
		Template{"static property", []Element{
			term(op(il.OP_CALL), getter(true), TermGetter), box, call,
		}},
		Template{"method group", []Element{
			el(op(il.OP_LDARG, il.OP_LDLOC, il.OP_LDNULL), nil),
			term(op(il.OP_LDFTN), notClosure, TermMethod),
			ctor, call,
		}},
		Template{"virtual method group", []Element{
			receiver,
			el(op(il.OP_DUP), nil),
			term(op(il.OP_LDVIRTFTN), nil, TermMethod),
			ctor, call,
		}},
		Template{"type", []Element{
			term(op(il.OP_LDTOKEN), nil, TermType),
			el(op(il.OP_CALL), typeFromHandle),
			call,
		}},
		Template{"enum member", []Element{
			term(op(il.OP_LDC_I4), nil, TermEnum),
			el(op(il.OP_BOX), enumBox),
			call,
		}},
		Template{"capturing closure", []Element{
			receiver,
			term(op(il.OP_LDFTN), closure, TermClosure),
			ctor, call,
		}},
		// Non-capturing lambda, delegate cached in a static field of the
		// closure container:
		//   ldsfld <>9__0_0; dup; brtrue L; pop; ldsfld <>9; ldftn; newobj; dup; stsfld <>9__0_0; L: call
		Template{"cached closure", []Element{
			el(op(il.OP_LDSFLD), delegateCache),
			el(op(il.OP_DUP), nil),
			el(op(il.OP_BRTRUE), mk.branchesToMarkerCall()),
			el(op(il.OP_POP), nil),
			el(op(il.OP_LDSFLD), closureSingleton),
			term(op(il.OP_LDFTN), closure, TermClosure),
			ctor,
			el(op(il.OP_DUP), nil),
			act(op(il.OP_STSFLD), delegateCache, ActCandidateField),
			call,
		}},
		// Older compilers cache in a field of the declaring type itself:
		//   ldsfld cache; brtrue L; ldnull; ldftn; newobj; stsfld cache; L: ldsfld cache; call
		Template{"legacy cached closure", []Element{
			el(op(il.OP_LDSFLD), delegateCache),
			el(op(il.OP_BRTRUE), branchesToCacheLoad),
			el(op(il.OP_LDNULL), nil),
			term(op(il.OP_LDFTN), closure, TermClosure),
			ctor,
			act(op(il.OP_STSFLD), delegateCache, ActCandidateField),
			el(op(il.OP_LDSFLD), delegateCache),
			call,
		}},
	)
}

// closureTail is the end of a closure body returning the named value: an
// optional box, then the debug-build epilogue (stloc; br; ldloc) if any,
// then ret.
func closureTail(withBox bool) []Element {
	var tail []Element
	if withBox {
		tail = append(tail, opt(op(il.OP_BOX), nil))
	}
	return append(tail,
		opt(op(il.OP_STLOC), nil),
		opt(op(il.OP_BR), nil),
		opt(op(il.OP_LDLOC), nil),
		el(op(il.OP_RET), nil),
	)
}

func closureTemplate(name string, withBox bool, body ...Element) Template {
	elems := []Element{opt(op(il.OP_NOP), nil)}
	elems = append(elems, body...)
	return Template{Name: name, Elements: append(elems, closureTail(withBox)...)}
}

func notHoistedThis(ctx Context, in *il.Instruction) bool {
	return !hoistedThis(ctx, in)
}

// Closures builds the catalog matched backwards from the last instruction
// of a compiler-generated closure body.
func Closures() *Catalog {
	self := el(op(il.OP_LDARG), isThis)
	outerThis := el(op(il.OP_LDFLD), hoistedThis)
	ctor := el(op(il.OP_NEWOBJ), delegateCtor)
	getterCall := op(il.OP_CALL, il.OP_CALLVIRT)

	return NewCatalog(ClosureCatalog,
		closureTemplate("captured variable", true,
			self, term(op(il.OP_LDFLD), notHoistedThis, TermField)),
		closureTemplate("parameter field", true,
			el(op(il.OP_LDARG), notThis), term(op(il.OP_LDFLD), nil, TermField)),
		closureTemplate("captured field", true,
			self, outerThis, term(op(il.OP_LDFLD), nil, TermField)),
		closureTemplate("captured property", true,
			self, outerThis, term(getterCall, getter(false), TermGetter)),
		closureTemplate("instance property", true,
			el(op(il.OP_LDARG), nil), term(getterCall, getter(false), TermGetter)),
		closureTemplate("static field", true,
			term(op(il.OP_LDSFLD), nil, TermField)),
		closureTemplate("static property", true,
			term(op(il.OP_CALL), getter(true), TermGetter)),
		closureTemplate("captured method group", true,
			self, outerThis, term(op(il.OP_LDFTN), notClosure, TermMethod), ctor),
		closureTemplate("method group", true,
			el(op(il.OP_LDARG, il.OP_LDNULL), nil), term(op(il.OP_LDFTN), notClosure, TermMethod), ctor),
		closureTemplate("virtual method group", true,
			el(op(il.OP_LDARG), nil), el(op(il.OP_DUP), nil), term(op(il.OP_LDVIRTFTN), nil, TermMethod), ctor),
		closureTemplate("enum member", false,
			term(op(il.OP_LDC_I4), nil, TermEnum), el(op(il.OP_BOX), enumBox)),
		closureTemplate("type", false,
			term(op(il.OP_LDTOKEN), nil, TermType), el(op(il.OP_CALL), typeFromHandle)),
	)
}
