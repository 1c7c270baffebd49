package styles

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

var quotes = regexp.MustCompile(`^['"]|['"]$`)

func unquote(s string) string { return quotes.ReplaceAllString(s, "") }

func strParam(name string) function.Parameter {
	return function.Parameter{Name: name, Type: cty.String}
}

// StrReplaceFunc replaces every match of pattern (a multiline regexp) in string.
var StrReplaceFunc = function.New(&function.Spec{
	Params: []function.Parameter{strParam("string"), strParam("pattern"), strParam("value")},
	Type:   function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		re, err := regexp.Compile("(?m)" + unquote(args[1].AsString()))
		if err != nil {
			return cty.NilVal, function.NewArgError(1, err)
		}
		return cty.StringVal(re.ReplaceAllString(unquote(args[0].AsString()), unquote(args[2].AsString()))), nil
	},
})

// StrSplitFunc splits string around every occurrence of sep.
var StrSplitFunc = function.New(&function.Spec{
	Params: []function.Parameter{strParam("string"), strParam("sep")},
	Type:   function.StaticReturnType(cty.List(cty.String)),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		parts := strings.Split(unquote(args[0].AsString()), unquote(args[1].AsString()))
		vals := make([]cty.Value, len(parts))
		for i, p := range parts {
			vals[i] = cty.StringVal(p)
		}
		if len(vals) == 0 {
			return cty.ListValEmpty(cty.String), nil
		}
		return cty.ListVal(vals), nil
	},
})

// StrIndexOfFunc returns the character index of match in string, or -1.
var StrIndexOfFunc = function.New(&function.Spec{
	Params: []function.Parameter{strParam("match"), strParam("string")},
	Type:   function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		s := unquote(args[1].AsString())
		i := strings.Index(s, unquote(args[0].AsString()))
		if i < 0 {
			return cty.NumberIntVal(-1), nil
		}
		return cty.NumberIntVal(int64(utf8.RuneCountInString(s[:i]))), nil
	},
})

// StrToBase64Func encodes string as standard base64.
var StrToBase64Func = function.New(&function.Spec{
	Params: []function.Parameter{strParam("string")},
	Type:   function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(base64.StdEncoding.EncodeToString([]byte(unquote(args[0].AsString())))), nil
	},
})

// Functions returns the function table available to stylesheets.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"str-replace":   StrReplaceFunc,
		"str-split":     StrSplitFunc,
		"str-indexOf":   StrIndexOfFunc,
		"str-to-base64": StrToBase64Func,
	}
}
