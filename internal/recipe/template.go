package recipe

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/nikolalohinski/gonja/v2/builtins"
	"github.com/nikolalohinski/gonja/v2/config"
	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/nikolalohinski/gonja/v2/loaders"
)

// Platform names the selector identifiers that evaluate to true while
// rendering a recipe.
type Platform struct {
	OS string // linux, osx or win
}

// PlatformForSubdir derives the selector platform from a channel subdir such
// as "linux-64" or "osx-arm64". Unknown subdirs select nothing.
func PlatformForSubdir(subdir string) Platform {
	name, _, _ := strings.Cut(subdir, "-")
	return Platform{OS: name}
}

func (p Platform) identifiers() map[string]any {
	return map[string]any{
		"linux": p.OS == "linux",
		"osx":   p.OS == "osx",
		"win":   p.OS == "win",
		"unix":  p.OS == "linux" || p.OS == "osx",
	}
}

const templateID = "/meta.yaml"

var (
	selector = regexp.MustCompile(`^(.*?)\s*#\s*\[([^\]]+)\]\s*$`)

	environment = &exec.Environment{
		Context:           exec.EmptyContext().Update(builtins.GlobalFunctions).Update(builtins.GlobalVariables),
		Filters:           builtins.Filters,
		Tests:             builtins.Tests,
		ControlStructures: builtins.ControlStructures,
		Methods:           builtins.Methods,
	}
)

// render executes src as a Jinja template, then filters lines by selector,
// returning plain YAML. Undefined names in the body are errors; undefined
// names in a selector are false.
func render(src string, platform Platform) (string, error) {
	strict := config.New()
	strict.StrictUndefined = true
	body, err := execute(src, strict, platform)
	if err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}

	selected := make(map[string]bool)
	var out strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if m := selector.FindStringSubmatch(line); m != nil {
			ok, seen := selected[m[2]]
			if !seen {
				if ok, err = evalSelector(m[2], platform); err != nil {
					return "", err
				}
				selected[m[2]] = ok
			}
			if !ok {
				continue
			}
			line = m[1]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return out.String(), nil
}

// evalSelector evaluates a selector expression such as "linux and not win"
// against the platform identifiers.
func evalSelector(expr string, platform Platform) (bool, error) {
	out, err := execute("{% if "+expr+" %}1{% endif %}", config.New(), platform)
	if err != nil {
		return false, fmt.Errorf("invalid selector [%s]: %w", expr, err)
	}
	return out == "1", nil
}

func execute(src string, cfg *config.Config, platform Platform) (string, error) {
	loader, err := loaders.NewMemoryLoader(map[string]string{templateID: src})
	if err != nil {
		return "", err
	}
	tpl, err := exec.NewTemplate(templateID, cfg, loader, environment)
	if err != nil {
		return "", err
	}
	data := platform.identifiers()
	data["environ"] = map[string]any{}
	return tpl.ExecuteToString(exec.NewContext(data))
}
