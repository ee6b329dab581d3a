package secret

import (
	"errors"
	"os"
	"regexp"
	"sort"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ErrMissingEnv indicates a braced reference named an unset variable.
var ErrMissingEnv = errors.New("secret: missing required environment variables")

// MissingEnvError lists the unset variables referenced by a value.
type MissingEnvError struct {
	Names []string
}

func (e *MissingEnvError) Error() string {
	return ErrMissingEnv.Error() + ": " + strings.Join(e.Names, ", ")
}

// Is reports whether target is ErrMissingEnv.
func (e *MissingEnvError) Is(target error) bool {
	return target == ErrMissingEnv
}

// ExpandEnvStrict expands environment variables in s.
//
// Semantics:
//   - `$VAR` and `${VAR}` are expanded via os.ExpandEnv.
//   - If `${VAR}` is present but VAR is missing from the environment, it
//     returns a *MissingEnvError.
//   - `$$` emits a literal `$`.
func ExpandEnvStrict(s string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	const dollarSentinel = "\x00HEALTHAGG_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollarSentinel)

	missing := make(map[string]struct{})
	for _, match := range envVarPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(match[1]); !ok {
			missing[match[1]] = struct{}{}
		}
	}
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for k := range missing {
			names = append(names, k)
		}
		sort.Strings(names)
		return "", &MissingEnvError{Names: names}
	}

	s = os.ExpandEnv(s)
	return strings.ReplaceAll(s, dollarSentinel, "$"), nil
}
