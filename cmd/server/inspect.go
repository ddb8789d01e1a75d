package main

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/eugenenazirov/layered-config/internal/configstore"
	"github.com/eugenenazirov/layered-config/internal/hosting"
)

// inspector prints store lookups for the get, section, sources and explain
// commands.
type inspector struct {
	out      io.Writer
	store    *configstore.ConfigStore
	redacted map[string]bool
}

func newInspector(out io.Writer, host *hosting.Host, redact bool) *inspector {
	in := &inspector{
		out:      out,
		store:    host.Store,
		redacted: make(map[string]bool),
	}
	if redact {
		for _, name := range host.SensitiveSources() {
			in.redacted[name] = true
		}
	}
	return in
}

func (in *inspector) get(key string) error {
	rv, err := in.resolve(key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(in.out, in.value(rv))
	return err
}

func (in *inspector) resolve(key string) (configstore.ResolvedValue, error) {
	if _, ok := configstore.NormalizeKey(key); !ok {
		return configstore.ResolvedValue{}, &configstore.Error{Kind: configstore.KindInvalidKey, Key: key}
	}
	rv, ok := in.store.Get(key)
	if !ok {
		return configstore.ResolvedValue{}, &configstore.Error{Kind: configstore.KindMissingKey, Key: key}
	}
	return rv, nil
}

func (in *inspector) section(prefix string) {
	section := in.store.GetSection(prefix)
	keys := make([]string, 0, len(section))
	for k := range section {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	tw := tabwriter.NewWriter(in.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
	for _, k := range keys {
		rv := section[k]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", k, in.value(rv), rv.Source)
	}
	_ = tw.Flush()
}

func (in *inspector) sources() {
	tw := tabwriter.NewWriter(in.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tNAME\tENTRIES\tREVISION")
	for _, info := range in.store.Sources() {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", info.Priority, info.Name, info.Entries, info.Revision)
	}
	_ = tw.Flush()
}

func (in *inspector) explain(key string) error {
	if _, err := in.resolve(key); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(in.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tSOURCE\tKEY\tVALUE")
	for i, rv := range in.store.Explain(key) {
		marker := ""
		if i == 0 {
			marker = " (wins)"
		}
		fmt.Fprintf(tw, "%d\t%s%s\t%s\t%s\n", rv.Priority, rv.Source, marker, rv.Key, in.value(rv))
	}
	return tw.Flush()
}

func (in *inspector) value(rv configstore.ResolvedValue) string {
	if in.redacted[rv.Source] {
		return "***"
	}
	return rv.Value
}
