/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tomoncle/datamapper"
	"github.com/tomoncle/datamapper/config"
	"github.com/tomoncle/datamapper/repository"
	"github.com/tomoncle/datamapper/storage"
	"github.com/tomoncle/datamapper/types"
)

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
)

type settings struct {
	configPath string
	output     string

	cfg   *config.Config
	store storage.Storage
}

func (s *settings) repository(collection string) repository.Repository[types.Record] {
	return repository.NewRecordRepository(s.store, collection,
		repository.WithIdentifierColumn(s.cfg.Storage.IDColumn))
}

// RootCommand creates and returns the root command.
func RootCommand() *cobra.Command {
	s := &settings{}

	rootCmd := &cobra.Command{
		Use:           "datamapper",
		Short:         "Query and save collection rows",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&s.configPath, "config", "c", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&s.output, "output", "o", outputText, "Output format: text, json")

	versionCmd := versionCommand()
	rootCmd.AddCommand(
		fetchCommand(s),
		findCommand(s),
		findByCommand(s),
		saveCommand(s),
		initSQLCommand(s),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return s.initialize(cmd.Context())
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if s.store == nil {
			return nil
		}
		s.store = nil
		return datamapper.Close()
	}

	return rootCmd
}

func (s *settings) initialize(ctx context.Context) error {
	if s.output != outputText && s.output != outputJSON {
		return fmt.Errorf("unsupported output format: %s", s.output)
	}
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return err
	}
	store, err := datamapper.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	s.cfg, s.store = cfg, store
	return nil
}

// parseFields turns field=value arguments into a record, parsing each value
// with types.ParseValue.
func parseFields(args []string) (*types.Record, error) {
	r := types.NewRecord()
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid field argument %q, expected field=value", arg)
		}
		r.Set(field, types.ParseValue(value))
	}
	return r, nil
}

func (s *settings) printRows(w io.Writer, rows []*types.Record) error {
	if s.output == outputJSON {
		if rows == nil {
			rows = []*types.Record{}
		}
		return writeJSON(w, rows)
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	return nil
}

func (s *settings) printRow(w io.Writer, row *types.Record) error {
	if row == nil {
		if s.output == outputJSON {
			_, err := fmt.Fprintln(w, "null")
			return err
		}
		_, err := fmt.Fprintln(w, "not found")
		return err
	}
	if s.output == outputJSON {
		return writeJSON(w, row)
	}
	_, err := fmt.Fprintln(w, row.String())
	return err
}

func (s *settings) printValue(w io.Writer, v types.Value) error {
	if s.output == outputJSON {
		return writeJSON(w, map[string]types.Value{"id": v})
	}
	_, err := fmt.Fprintln(w, v.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
