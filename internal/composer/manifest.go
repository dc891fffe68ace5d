package composer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/go-version"
)

// Packages owned by the skeleton; legacy constraints on them are never carried
// over.
var skipPackages = map[string]bool{
	"php":                    true,
	"codeigniter/framework":  true,
	"codeigniter4/framework": true,
}

// Change is one require entry written by MergeRequire.
type Change struct {
	Package string
	From    string // empty when the package was added
	To      string
}

// object is a JSON object that remembers its key order.
type object struct {
	keys   []string
	values map[string]json.RawMessage
}

func parseObject(data []byte) (*object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("not a JSON object")
	}

	o := &object{values: map[string]json.RawMessage{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		o.set(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *object) set(key string, raw json.RawMessage) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = raw
}

func (o *object) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(o.values[k])
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// MergeRequire copies the legacy manifest's require entries into the target
// manifest. Existing target entries are only replaced by a strictly newer
// version; constraints that cannot be compared are kept as they are. A missing
// legacy manifest is not an error.
func MergeRequire(legacyPath, targetPath string) ([]Change, error) {
	legacyData, err := os.ReadFile(legacyPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", legacyPath, err)
	}
	var legacy struct {
		Require map[string]string `json:"require"`
	}
	if err := json.Unmarshal(legacyData, &legacy); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", legacyPath, err)
	}

	target := &object{values: map[string]json.RawMessage{}}
	if data, err := os.ReadFile(targetPath); err == nil {
		if target, err = parseObject(data); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", targetPath, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", targetPath, err)
	}

	require := &object{values: map[string]json.RawMessage{}}
	if raw, ok := target.values["require"]; ok {
		if require, err = parseObject(raw); err != nil {
			return nil, fmt.Errorf("failed to parse require of %s: %w", targetPath, err)
		}
	}

	pkgs := make([]string, 0, len(legacy.Require))
	for pkg := range legacy.Require {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)

	var changes []Change
	for _, pkg := range pkgs {
		if skipPackages[strings.ToLower(pkg)] {
			continue
		}
		want := legacy.Require[pkg]
		var have string
		if raw, ok := require.values[pkg]; ok {
			if err := json.Unmarshal(raw, &have); err != nil || !newer(want, have) {
				continue
			}
		}
		value, err := json.Marshal(want)
		if err != nil {
			return nil, err
		}
		require.set(pkg, value)
		changes = append(changes, Change{Package: pkg, From: have, To: want})
	}
	if len(changes) == 0 {
		return nil, nil
	}

	raw, err := json.Marshal(require)
	if err != nil {
		return nil, err
	}
	target.set("require", raw)

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(target); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", targetPath, err)
	}
	if err := os.WriteFile(targetPath, out.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", targetPath, err)
	}
	return changes, nil
}

// newer reports whether constraint a names a higher lower bound than b.
func newer(a, b string) bool {
	va, err := version.NewVersion(lowerBound(a))
	if err != nil {
		return false
	}
	vb, err := version.NewVersion(lowerBound(b))
	if err != nil {
		return false
	}
	return va.GreaterThan(vb)
}

func lowerBound(constraint string) string {
	c := strings.TrimSpace(constraint)
	if i := strings.IndexAny(c, ",| "); i >= 0 {
		c = c[:i]
	}
	return strings.TrimLeft(c, "^~>=v")
}
