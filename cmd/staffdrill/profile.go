package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/staffdrill/internal/config"
	"github.com/verte-zerg/staffdrill/internal/curriculum"
	"github.com/verte-zerg/staffdrill/internal/profile"
	"github.com/verte-zerg/staffdrill/internal/store"
	"github.com/verte-zerg/staffdrill/internal/trainer"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the learner profile as JSON",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&profileVariant, "variant", defaultVariant, "trainer variant")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "output file (- for stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	v, err := curriculum.Lookup(profileVariant, 0)
	if err != nil {
		return err
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	data, err := exportProfile(context.Background(), st, v)
	if err != nil {
		return err
	}
	if exportOutput == "" || exportOutput == "-" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	if err := writeExport(exportOutput, data); err != nil {
		return err
	}
	logErrf("Wrote %s\n", exportOutput)
	return nil
}

// exportProfile returns the normalized stored profile, or the defaults when
// nothing was stored yet.
func exportProfile(ctx context.Context, st trainer.Persister, v curriculum.Variant) ([]byte, error) {
	raw, _, err := st.LoadProfile(ctx, v.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	p, err := profile.Decode(raw, v)
	if err != nil {
		return nil, fmt.Errorf("stored profile is unreadable: %w", err)
	}
	return profile.Encode(p)
}

func writeExport(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "profile-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp export: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	writer := bufio.NewWriter(tmpFile)
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close export: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the learner profile from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
	cmd.Flags().StringVar(&profileVariant, "variant", defaultVariant, "trainer variant")
	return cmd
}

func runImportCmd(_ *cobra.Command, args []string) error {
	v, err := curriculum.Lookup(profileVariant, 0)
	if err != nil {
		return err
	}
	var raw []byte
	if args[0] == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read profile: %w", err)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	if err := importProfile(context.Background(), st, v, raw); err != nil {
		return err
	}
	logErrf("Imported profile into %s\n", v.Name)
	return nil
}

// importProfile decodes raw with the same tolerant rules used on load and
// stores the result. Unparseable input is refused instead of replaced by
// defaults.
func importProfile(ctx context.Context, st trainer.Persister, v curriculum.Variant, raw []byte) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return fmt.Errorf("profile file is empty")
	}
	p, err := profile.Decode(raw, v)
	if err != nil {
		return fmt.Errorf("failed to import profile: %w", err)
	}
	data, err := profile.Encode(p)
	if err != nil {
		return err
	}
	if err := st.SaveProfile(ctx, v.StorageKey, data); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset progress to defaults",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
	cmd.Flags().StringVar(&profileVariant, "variant", defaultVariant, "trainer variant")
	cmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

var errResetAborted = errors.New("reset aborted")

func runResetCmd(cmd *cobra.Command, _ []string) error {
	v, err := curriculum.Lookup(profileVariant, 0)
	if err != nil {
		return err
	}
	if !resetYes && !confirm(cmd.InOrStdin(), fmt.Sprintf("Reset all %s progress? [y/N] ", v.Name)) {
		return errResetAborted
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	ctx := context.Background()
	session, err := trainer.Open(ctx, st, v)
	if err != nil {
		return err
	}
	if err := session.Reset(ctx); err != nil {
		return err
	}
	logErrln("Progress reset.")
	return nil
}

func confirm(in io.Reader, prompt string) bool {
	logErrf("%s", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
