package persona

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode parses one persona definition file. The encoding is chosen by
// file extension; unsupported extensions return an error so the registry
// can skip them.
func Decode(path string, data []byte) (*Persona, error) {
	var (
		p   *Persona
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".chaos":
		p, err = decodeChaos(data)
	case ".json":
		p, err = decodeMirror(data)
	case ".yaml", ".yml":
		p, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("unsupported persona encoding %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	if p.DisplayName == "" {
		// Fall back to the file name, as the original definitions often
		// rely on it.
		base := filepath.Base(path)
		p.DisplayName = strings.TrimSuffix(base, filepath.Ext(base))
	}
	p.ID = NormalizeID(p.DisplayName)
	if p.ID == "" {
		return nil, fmt.Errorf("persona definition %s has no name", path)
	}
	p.SourcePath = path
	return p, nil
}

var chaosHeaderRe = regexp.MustCompile(`^\[\s*([^\]]+?)\s*\]\s*:\s*(.*)$`)

// decodeChaos parses bracketed key:value lines.
func decodeChaos(data []byte) (*Persona, error) {
	fields := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		if m := chaosHeaderRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			fields[strings.ToLower(m[1])] = strings.TrimSpace(m[2])
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no CHAOS fields found")
	}

	name := fields["persona"]
	if name == "" {
		name = fields["name"]
	}
	tone := fields["tone"]
	if tone == "" {
		tone = fields["style"]
	}
	affinities := fields["affinities"]
	if affinities == "" {
		affinities = fields["echo_affinities"]
	}

	return &Persona{
		DisplayName:    name,
		Tone:           tone,
		Keywords:       splitList(fields["keywords"], ",;"),
		Phrases:        splitList(fields["phrases"], ";\n"),
		Overrides:      parseOverrides(fields["overrides"]),
		EchoAffinities: splitList(affinities, ",;"),
		SourceFormat:   FormatChaos,
	}, nil
}

// mirrorDoc is the shared shape of the JSON and YAML encodings.
type mirrorDoc struct {
	Name           string            `json:"name" yaml:"name"`
	Tone           string            `json:"tone" yaml:"tone"`
	Keywords       []string          `json:"keywords" yaml:"keywords"`
	Phrases        []string          `json:"phrases" yaml:"phrases"`
	Overrides      map[string]string `json:"overrides" yaml:"overrides"`
	Affinities     []string          `json:"affinities" yaml:"affinities"`
	EchoAffinities []string          `json:"echo_affinities" yaml:"echo_affinities"`
}

func (d *mirrorDoc) toPersona(format Format) *Persona {
	affinities := d.EchoAffinities
	if len(affinities) == 0 {
		affinities = d.Affinities
	}
	return &Persona{
		DisplayName:    d.Name,
		Tone:           d.Tone,
		Keywords:       trimAll(d.Keywords),
		Phrases:        trimAll(d.Phrases),
		Overrides:      d.Overrides,
		EchoAffinities: trimAll(affinities),
		SourceFormat:   format,
	}
}

func decodeMirror(data []byte) (*Persona, error) {
	var doc mirrorDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse mirror json: %w", err)
	}
	return doc.toPersona(FormatMirror), nil
}

func decodeYAML(data []byte) (*Persona, error) {
	var doc mirrorDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return doc.toPersona(FormatYAML), nil
}

// splitList splits a raw field on any of the separator runes and trims the
// pieces.
func splitList(raw string, seps string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})
	return trimAll(parts)
}

func trimAll(parts []string) []string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseOverrides accepts a JSON object string; anything else yields no
// overrides, matching the tolerant behavior of the original parser.
func parseOverrides(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	var overrides map[string]string
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		return nil
	}
	return overrides
}
