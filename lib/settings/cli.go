package settings

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
)

func ConfigShow(w io.Writer, v *viper.Viper) {
	fmt.Fprintf(w,
		"%-35s %-45s %-20s %-20s %s\n",
		"JSON KEY",
		"ENV VAR",
		"CURRENT",
		"DEFAULT",
		"DESCRIPTION",
	)

	for _, c := range Registry {
		fmt.Fprintf(w,
			"%-35s %-45s %-20v %-20v %s\n",
			c.Key,
			EnvVar(c.Key),
			v.Get(c.Key),
			c.Default,
			c.Description,
		)
	}
}

func ConfigDump(w io.Writer, v *viper.Viper) error {
	out, err := json.MarshalIndent(v.AllSettings(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(out))
	return nil
}

func ConfigEnv(w io.Writer) {
	fmt.Fprintf(w, "%-45s %s\n", "ENV VAR", "JSON KEY")

	for _, c := range Registry {
		fmt.Fprintf(w,
			"%-45s %s\n",
			EnvVar(c.Key),
			c.Key,
		)
	}
}

func ConfigGet(w io.Writer, v *viper.Viper, key string) error {
	for _, c := range Registry {
		if c.Key == key {
			fmt.Fprintln(w, v.Get(key))
			return nil
		}
	}
	return fmt.Errorf("unknown config key: %s", key)
}

// ConfigInit writes a settings.json holding every default.
func ConfigInit(w io.Writer) error {
	out := map[string]any{}

	for _, c := range Registry {
		parts := strings.Split(c.Key, ".")
		section := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := section[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				section[p] = next
			}
			section = next
		}
		section[parts[len(parts)-1]] = c.Default
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(w, string(b))
	return nil
}
