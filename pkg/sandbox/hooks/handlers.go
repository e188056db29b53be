package hooks

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"mercator-hq/bastion/pkg/sandbox/policy"
)

type handler func(r *Runtime, args []any) (any, error)

// handlers maps every hook method to its implementation.
var handlers = map[Method]handler{
	CallFunc: func(r *Runtime, args []any) (any, error) {
		name, err := nameArg(args, 0)
		if err != nil {
			return nil, err
		}
		return r.CallFunc(name, args[1:]...)
	},
	CheckFunc: func(r *Runtime, args []any) (any, error) {
		name, err := nameArg(args, 0)
		if err != nil {
			// Closures and invokable objects were checked where they were created.
			return typeName(arg(args, 0)) == "object", nil
		}
		return r.CheckFunc(name), nil
	},
	GetSuperglobal: func(r *Runtime, args []any) (any, error) {
		name, err := nameArg(args, 0)
		if err != nil {
			return nil, err
		}
		return r.Superglobal(name), nil
	},
	GetMagicConst: func(r *Runtime, args []any) (any, error) {
		name, err := nameArg(args, 0)
		if err != nil {
			return nil, err
		}
		return r.MagicConst(name)
	},
	Wrap:      func(r *Runtime, args []any) (any, error) { return r.Wrap(arg(args, 0)), nil },
	WrapByRef: func(r *Runtime, args []any) (any, error) { return r.WrapByRef(arg(args, 0)), nil },

	// The rewritten call passes the native argument list first.
	FuncGetArgs: func(r *Runtime, args []any) (any, error) { return callerArgs(args), nil },
	FuncGetArg: func(r *Runtime, args []any) (any, error) {
		list := callerArgs(args)
		idx := int(toInt(arg(args, 1)))
		if idx < 0 || idx >= len(list) {
			return nil, nil
		}
		return list[idx], nil
	},
	FuncNumArgs: func(r *Runtime, args []any) (any, error) { return int64(len(callerArgs(args))), nil },

	IsString: func(r *Runtime, args []any) (any, error) {
		_, ok := Unwrap(arg(args, 0)).(string)
		return ok, nil
	},
	IsObject:   func(r *Runtime, args []any) (any, error) { return typeName(arg(args, 0)) == "object", nil },
	IsScalar:   func(r *Runtime, args []any) (any, error) { return isScalar(arg(args, 0)), nil },
	IsCallable: func(r *Runtime, args []any) (any, error) { return r.isCallable(arg(args, 0)), nil },
	GetType:    func(r *Runtime, args []any) (any, error) { return typeName(arg(args, 0)), nil },
	GetClass: func(r *Runtime, args []any) (any, error) {
		v := arg(args, 0)
		if typeName(v) != "object" {
			return nil, fmt.Errorf("get_class(): argument must be an object, %s given", typeName(v))
		}
		return fmt.Sprintf("%T", v), nil
	},
	IntVal:    func(r *Runtime, args []any) (any, error) { return toInt(arg(args, 0)), nil },
	FloatVal:  func(r *Runtime, args []any) (any, error) { return toFloat(arg(args, 0)), nil },
	BoolVal:   func(r *Runtime, args []any) (any, error) { return toBool(arg(args, 0)), nil },
	StrVal:    func(r *Runtime, args []any) (any, error) { return toString(arg(args, 0)), nil },
	ArrayVal:  func(r *Runtime, args []any) (any, error) { return toArray(arg(args, 0)), nil },
	ObjectVal: func(r *Runtime, args []any) (any, error) { return toObject(arg(args, 0)), nil },
	InArray: func(r *Runtime, args []any) (any, error) {
		needle, strict := Unwrap(arg(args, 0)), toBool(arg(args, 2))
		for _, v := range values(arg(args, 1)) {
			if looseEqual(needle, Unwrap(v), strict) {
				return true, nil
			}
		}
		return false, nil
	},
	ArrayKeyExists: func(r *Runtime, args []any) (any, error) {
		key := Unwrap(arg(args, 0))
		switch c := arg(args, 1).(type) {
		case map[string]any:
			_, ok := c[toString(key)]
			return ok, nil
		case []any:
			idx := toInt(key)
			return idx >= 0 && idx < int64(len(c)), nil
		}
		return false, nil
	},

	GetDefinedFunctions: func(r *Runtime, args []any) (any, error) {
		return map[string]any{"user": r.visible(policy.Function)}, nil
	},
	GetDefinedVars: func(r *Runtime, args []any) (any, error) {
		scope, _ := arg(args, 0).(map[string]any)
		out := make(map[string]any, len(scope))
		for name, v := range scope {
			if _, self := v.(*Runtime); self {
				continue
			}
			if !r.opts.ValidateVariables || r.store.Decide(policy.Variable, name, "").Allowed {
				out[name] = v
			}
		}
		return out, nil
	},
	GetDefinedConstants: func(r *Runtime, args []any) (any, error) {
		out := make(map[string]any)
		for _, name := range r.visible(policy.Constant) {
			def, _ := r.store.Definition(policy.Constant, name)
			out[name] = def
		}
		return out, nil
	},
	GetDeclaredClasses:    func(r *Runtime, args []any) (any, error) { return r.visible(policy.Class), nil },
	GetDeclaredInterfaces: func(r *Runtime, args []any) (any, error) { return r.visible(policy.Interface), nil },
	GetDeclaredTraits:     func(r *Runtime, args []any) (any, error) { return r.visible(policy.Trait), nil },
	GetIncludedFiles: func(r *Runtime, args []any) (any, error) {
		if r.file == "" {
			return []string{}, nil
		}
		return []string{r.file}, nil
	},
	FunctionExists:  existsIn(policy.Function),
	ClassExists:     existsIn(policy.Class),
	InterfaceExists: existsIn(policy.Interface),
	TraitExists:     existsIn(policy.Trait),
	Defined:         existsIn(policy.Constant),
}

func existsIn(c policy.Category) handler {
	return func(r *Runtime, args []any) (any, error) {
		name, err := nameArg(args, 0)
		if err != nil {
			return false, nil
		}
		return r.known(c, name), nil
	}
}

// visible lists the whitelisted and defined names of a category.
func (r *Runtime) visible(c policy.Category) []string {
	snap := r.store.Snapshot()
	set := make(map[string]struct{})
	for _, name := range snap.Whitelist[c] {
		set[name] = struct{}{}
	}
	for _, name := range snap.Definitions[c] {
		set[name] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

func (r *Runtime) isCallable(v any) bool {
	switch fn := v.(type) {
	case *SandboxedString:
		return r.CheckFunc(fn.Value)
	case string:
		return r.CheckFunc(fn)
	}
	_, ok := callable(v)
	return ok
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func nameArg(args []any, i int) (string, error) {
	switch v := arg(args, i).(type) {
	case string:
		return v, nil
	case *SandboxedString:
		return v.Value, nil
	}
	return "", fmt.Errorf("hook argument %d must be a name", i)
}

// callerArgs strips runtime handles from a native argument list and unwraps
// sandboxed strings.
func callerArgs(args []any) []any {
	list, _ := arg(args, 0).([]any)
	out := make([]any, 0, len(list))
	for _, v := range list {
		if _, self := v.(*Runtime); self {
			continue
		}
		out = append(out, Unwrap(v))
	}
	return out
}

func values(v any) []any {
	switch c := v.(type) {
	case []any:
		return c
	case map[string]any:
		out := make([]any, 0, len(c))
		for _, k := range slices.Sorted(maps.Keys(c)) {
			out = append(out, c[k])
		}
		return out
	}
	return nil
}

func looseEqual(a, b any, strict bool) bool {
	if strict {
		return reflect.DeepEqual(a, b)
	}
	if isNumeric(a) || isNumeric(b) {
		return toFloat(a) == toFloat(b)
	}
	return toString(a) == toString(b)
}
