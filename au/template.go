package au

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTemplate is returned for malformed templates.
var ErrInvalidTemplate = errors.New("invalid template")

// Template is a printf-style format with named AU parameters as arguments.
// Supported verbs are %s, %d (with optional zero-padded width) and %%.
//
// Arguments are parameter names, optionally wrapped in one of the functions
// url_host, url_path, add_www, del_www, to_https, to_http or short_year,
// e.g. url_host(base_url).
type Template struct {
	Format string   `yaml:"format" json:"format"`
	Args   []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// NewTemplate creates a Template.
func NewTemplate(format string, args ...string) Template {
	return Template{Format: format, Args: args}
}

// ParseTemplate parses the plugin-definition form of a template:
//
//	"%s%d/%s/", base_url, year, journal_id
//
// An unquoted string is taken as a format without arguments. Inside the
// quotes only \" is an escape, so regular expressions keep their backslashes.
func ParseTemplate(s string) (Template, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, `"`) {
		return Template{Format: s}, nil
	}

	var b strings.Builder
	i := 1
	closed := false
	for ; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) && s[i+1] == '"' {
			i++
			b.WriteByte('"')
			continue
		}
		if c == '"' {
			closed = true
			i++
			break
		}
		b.WriteByte(c)
	}
	if !closed {
		return Template{}, fmt.Errorf("%w: unterminated format in %q", ErrInvalidTemplate, s)
	}

	t := Template{Format: b.String()}
	rest := strings.TrimSpace(s[i:])
	if rest == "" {
		return t, nil
	}
	if !strings.HasPrefix(rest, ",") {
		return Template{}, fmt.Errorf("%w: expected ',' after format in %q", ErrInvalidTemplate, s)
	}
	for _, arg := range strings.Split(rest[1:], ",") {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			return Template{}, fmt.Errorf("%w: empty argument in %q", ErrInvalidTemplate, s)
		}
		t.Args = append(t.Args, arg)
	}
	return t, nil
}

// MustParseTemplate is like ParseTemplate but panics on error.
// It is intended for package-level plugin tables.
func MustParseTemplate(s string) Template {
	t, err := ParseTemplate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String renders the template in definition form.
func (t Template) String() string {
	q := `"` + strings.ReplaceAll(t.Format, `"`, `\"`) + `"`
	if len(t.Args) == 0 {
		return q
	}
	return q + ", " + strings.Join(t.Args, ", ")
}

// UnmarshalYAML accepts either the definition-form string or a mapping with
// format and args keys.
func (t *Template) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := ParseTemplate(node.Value)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	}
	type plain Template
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*t = Template(p)
	return nil
}

// MarshalYAML writes the definition-form string.
func (t Template) MarshalYAML() (any, error) {
	return t.String(), nil
}

// Params returns the parameter names the template references.
func (t Template) Params() []string {
	out := make([]string, 0, len(t.Args))
	for _, a := range t.Args {
		_, param := splitFunc(a)
		out = append(out, param)
	}
	return out
}

// Expand substitutes AU parameter values into the template.
func (t Template) Expand(cfg Config) (string, error) {
	return t.expand(cfg, false)
}

// ExpandPattern is like Expand but quotes string values for use in a regular
// expression.
func (t Template) ExpandPattern(cfg Config) (string, error) {
	return t.expand(cfg, true)
}

// CompilePattern expands the template as a regular expression and compiles it.
func (t Template) CompilePattern(cfg Config, caseInsensitive bool) (*regexp.Regexp, error) {
	expr, err := t.ExpandPattern(cfg)
	if err != nil {
		return nil, err
	}
	if caseInsensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling %q: %v", ErrInvalidTemplate, expr, err)
	}
	return re, nil
}

func (t Template) expand(cfg Config, quote bool) (string, error) {
	var b strings.Builder
	argIdx := 0
	f := t.Format

	for i := 0; i < len(f); i++ {
		c := f[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(f) {
			return "", fmt.Errorf("%w: trailing %% in %q", ErrInvalidTemplate, f)
		}
		if f[i+1] == '%' {
			b.WriteByte('%')
			i++
			continue
		}

		// Optional zero-padded width for %d, e.g. %02d
		j := i + 1
		for j < len(f) && f[j] >= '0' && f[j] <= '9' {
			j++
		}
		if j >= len(f) {
			return "", fmt.Errorf("%w: incomplete verb in %q", ErrInvalidTemplate, f)
		}
		width := f[i+1 : j]
		verb := f[j]
		i = j

		if argIdx >= len(t.Args) {
			return "", fmt.Errorf("%w: not enough arguments for %q", ErrInvalidTemplate, f)
		}
		val, err := evalArg(cfg, t.Args[argIdx])
		if err != nil {
			return "", err
		}
		argIdx++

		switch verb {
		case 's':
			if width != "" {
				return "", fmt.Errorf("%w: width not supported for %%s in %q", ErrInvalidTemplate, f)
			}
			if quote {
				val = regexp.QuoteMeta(val)
			}
			b.WriteString(val)
		case 'd':
			n, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				_, param := splitFunc(t.Args[argIdx-1])
				return "", &ParamError{Param: param, Err: ErrInvalidParam, Detail: fmt.Sprintf("%q is not an integer", val)}
			}
			if width != "" {
				w, _ := strconv.Atoi(width)
				fmt.Fprintf(&b, "%0*d", w, n)
			} else {
				b.WriteString(strconv.Itoa(n))
			}
		default:
			return "", fmt.Errorf("%w: unsupported verb %%%c in %q", ErrInvalidTemplate, verb, f)
		}
	}

	if argIdx != len(t.Args) {
		return "", fmt.Errorf("%w: %d arguments for %d verbs in %q", ErrInvalidTemplate, len(t.Args), argIdx, f)
	}
	return b.String(), nil
}

// splitFunc splits "fn(param)" into its function and parameter names.
func splitFunc(arg string) (fn, param string) {
	arg = strings.TrimSpace(arg)
	open := strings.IndexByte(arg, '(')
	if open > 0 && strings.HasSuffix(arg, ")") {
		return strings.TrimSpace(arg[:open]), strings.TrimSpace(arg[open+1 : len(arg)-1])
	}
	return "", arg
}

func evalArg(cfg Config, arg string) (string, error) {
	fn, param := splitFunc(arg)
	val, err := cfg.Require(param)
	if err != nil {
		return "", err
	}
	if fn == "" {
		return val, nil
	}

	if fn == "short_year" {
		if len(val) < 2 {
			return "", &ParamError{Param: param, Err: ErrInvalidParam, Detail: "year too short"}
		}
		return val[len(val)-2:], nil
	}

	u, perr := url.Parse(val)
	if perr != nil || u.Host == "" {
		return "", &ParamError{Param: param, Err: ErrInvalidParam, Detail: fmt.Sprintf("%s needs a URL, got %q", fn, val)}
	}
	switch fn {
	case "url_host":
		return u.Host, nil
	case "url_path":
		return u.Path, nil
	case "add_www":
		if !strings.HasPrefix(strings.ToLower(u.Host), "www.") {
			u.Host = "www." + u.Host
		}
		return u.String(), nil
	case "del_www":
		if strings.HasPrefix(strings.ToLower(u.Host), "www.") {
			u.Host = u.Host[4:]
		}
		return u.String(), nil
	case "to_https":
		u.Scheme = "https"
		return u.String(), nil
	case "to_http":
		u.Scheme = "http"
		return u.String(), nil
	default:
		return "", fmt.Errorf("%w: unknown function %q", ErrInvalidTemplate, fn)
	}
}
