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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tomoncle/datamapper"
	"github.com/tomoncle/datamapper/config"
	"github.com/tomoncle/datamapper/database"
	"github.com/tomoncle/datamapper/types"
)

func fetchCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <collection> [field=value...]",
		Short: "List the rows of a collection",
		Long:  "Lists every row of a collection, or only the rows matching all field=value criteria.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := s.repository(args[0])
			var (
				rows []*types.Record
				err  error
			)
			if len(args) == 1 {
				rows, err = repo.FetchAll(cmd.Context())
			} else {
				criteria, perr := parseFields(args[1:])
				if perr != nil {
					return perr
				}
				rows, err = repo.FetchAllBy(cmd.Context(), criteria)
			}
			if err != nil {
				return err
			}
			return s.printRows(cmd.OutOrStdout(), rows)
		},
	}
}

func findCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "find <collection> <id>",
		Short: "Show the row with the given identifier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := s.repository(args[0]).Find(cmd.Context(), types.ParseValue(args[1]))
			if err != nil {
				return err
			}
			return s.printRow(cmd.OutOrStdout(), row)
		},
	}
}

func findByCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "find-by <collection> field=value...",
		Short: "Show the first row matching the criteria",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			row, err := s.repository(args[0]).FindBy(cmd.Context(), criteria)
			if err != nil {
				return err
			}
			return s.printRow(cmd.OutOrStdout(), row)
		},
	}
}

func saveCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "save <collection> field=value...",
		Short: "Save a row and print its identifier",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			id, err := s.repository(args[0]).Save(cmd.Context(), data)
			if err != nil {
				return err
			}
			return s.printValue(cmd.OutOrStdout(), id)
		},
	}
}

func initSQLCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "init-sql <dir> [environment]",
		Short: "Run the SQL files under a directory",
		Long: `Runs <dir>/common/*.sql, then <dir>/environments/<environment>/*.sql, against
the configured SQL database. Files run in the order of their numeric prefix.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.cfg.Storage.Backend != config.BackendSQL {
				return fmt.Errorf("init-sql requires the %s storage backend, got %s", config.BackendSQL, s.cfg.Storage.Backend)
			}
			env := s.cfg.Database.DataInitConfig.Environment
			if len(args) == 2 {
				env = args[1]
			}
			if env == "" {
				env = "prod"
			}
			if err := database.InitDataWithSQL(cmd.Context(), database.DataInitConfig{
				Filepath:    args[0],
				Environment: env,
			}); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "initialized %s (%s)\n", args[0], env)
			return err
		},
	}
}

func versionCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := datamapper.GetVersionInfo()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "datamapper %s (commit %s, built %s, %s)\n",
				info.Version, info.GitCommit, info.BuildDate, info.GoVersion)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
