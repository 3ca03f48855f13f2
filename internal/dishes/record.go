package dishes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Unknown marks a numeric field the service did not provide. The dataset
// also uses it literally for missing values.
const Unknown = -1

// Record is a dish. Fields the client does not know about are kept in Extra
// and written back out on marshal.
type Record struct {
	ID            string
	Name          string
	Ingredients   []string
	Diet          string
	PrepTime      int
	CookTime      int
	FlavorProfile string
	Course        string
	State         string
	Region        string

	Extra map[string]json.RawMessage
}

var knownFields = map[string]bool{
	"id": true, "name": true, "ingredients": true, "diet": true,
	"prep_time": true, "cook_time": true, "flavor_profile": true,
	"course": true, "state": true, "region": true,
}

// UnmarshalJSON decodes the fixed fields leniently: ids may be numbers,
// ingredients may be a comma-separated string, and times may be strings.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode dish: %w", err)
	}

	rec := Record{PrepTime: Unknown, CookTime: Unknown}
	var err error
	if rec.ID, err = decodeScalar(raw["id"]); err != nil {
		return fmt.Errorf("decode dish id: %w", err)
	}
	if rec.Name, err = decodeScalar(raw["name"]); err != nil {
		return fmt.Errorf("decode dish name: %w", err)
	}
	if rec.Ingredients, err = decodeIngredients(raw["ingredients"]); err != nil {
		return fmt.Errorf("decode dish ingredients: %w", err)
	}
	if rec.PrepTime, err = decodeMinutes(raw["prep_time"]); err != nil {
		return fmt.Errorf("decode dish prep_time: %w", err)
	}
	if rec.CookTime, err = decodeMinutes(raw["cook_time"]); err != nil {
		return fmt.Errorf("decode dish cook_time: %w", err)
	}
	strFields := []struct {
		key string
		dst *string
	}{
		{"diet", &rec.Diet},
		{"flavor_profile", &rec.FlavorProfile},
		{"course", &rec.Course},
		{"state", &rec.State},
		{"region", &rec.Region},
	}
	for _, f := range strFields {
		if *f.dst, err = decodeScalar(raw[f.key]); err != nil {
			return fmt.Errorf("decode dish %s: %w", f.key, err)
		}
	}

	for k, v := range raw {
		if knownFields[k] {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]json.RawMessage)
		}
		rec.Extra[k] = v
	}

	*r = rec
	return nil
}

// MarshalJSON writes the fixed fields followed by Extra.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(knownFields)+len(r.Extra))
	for k, v := range r.Extra {
		out[k] = v
	}
	out["id"] = r.ID
	out["name"] = r.Name
	ingredients := r.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	out["ingredients"] = ingredients
	out["diet"] = r.Diet
	out["prep_time"] = r.PrepTime
	out["cook_time"] = r.CookTime
	out["flavor_profile"] = r.FlavorProfile
	out["course"] = r.Course
	out["state"] = r.State
	out["region"] = r.Region
	return json.Marshal(out)
}

// ExtraKeys returns the Extra keys in sorted order.
func (r Record) ExtraKeys() []string {
	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnmarshalJSON accepts numeric ids.
func (s *Suggestion) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode suggestion: %w", err)
	}
	id, err := decodeScalar(raw["id"])
	if err != nil {
		return fmt.Errorf("decode suggestion id: %w", err)
	}
	label, err := decodeScalar(raw["label"])
	if err != nil {
		return fmt.Errorf("decode suggestion label: %w", err)
	}
	if label == "" {
		// Older service builds answer with "name".
		if label, err = decodeScalar(raw["name"]); err != nil {
			return fmt.Errorf("decode suggestion name: %w", err)
		}
	}
	s.ID = id
	s.Label = label
	return nil
}

// decodeScalar turns a JSON string, number or null into a string.
func decodeScalar(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("want string or number, got %s", raw)
	}
	return n.String(), nil
}

func decodeMinutes(raw json.RawMessage) (int, error) {
	s, err := decodeScalar(raw)
	if err != nil {
		return Unknown, err
	}
	if s == "" {
		return Unknown, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Unknown, nil
	}
	return int(f), nil
}

func decodeIngredients(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return cleanTokens(list), nil
	}
	s, err := decodeScalar(raw)
	if err != nil {
		return nil, err
	}
	return cleanTokens(strings.Split(s, ",")), nil
}

func cleanTokens(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
