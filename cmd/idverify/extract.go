package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"idverify/internal/discrepancy"
	"idverify/internal/extract"
	"idverify/internal/models"
	"idverify/internal/ocr"
	"idverify/internal/textnorm"
)

type extractReport struct {
	Result        models.ExtractionResult `json:"result" yaml:"result"`
	Discrepancies []models.Discrepancy    `json:"discrepancies,omitempty" yaml:"discrepancies,omitempty"`
}

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "Extract identity fields from one document image",
		Long: `Runs OCR on the image with the configured backend and prints the
extracted fields. With --reference, the fields are compared against a
reference record JSON file and the mismatches are listed too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fromText, _ := cmd.Flags().GetBool("text")
			refPath, _ := cmd.Flags().GetString("reference")
			format, _ := cmd.Flags().GetString("format")
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q (json or yaml)", format)
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			raw := string(data)
			if !fromText {
				engine, err := ocr.NewEngineFromConfig(cfg.OCR)
				if err != nil {
					return err
				}
				defer engine.Close()
				if err := engine.Init(cmd.Context()); err != nil {
					return err
				}
				if raw, err = engine.Recognize(cmd.Context(), data); err != nil {
					return err
				}
			}

			report := extractReport{
				Result: extract.New(cfg.Extract).Extract(textnorm.Normalize(raw)),
			}
			if refPath != "" {
				ref, err := readReference(refPath)
				if err != nil {
					return err
				}
				report.Discrepancies = discrepancy.Detect(report.Result, &ref)
			}
			return writeReport(cmd.OutOrStdout(), format, report)
		},
	}
	cmd.Flags().Bool("text", false, "Treat the input as already recognized text and skip OCR")
	cmd.Flags().String("reference", "", "Reference record JSON file to compare against")
	cmd.Flags().String("format", "json", "Output format: json or yaml")
	return cmd
}

func readReference(path string) (models.ReferenceRecord, error) {
	var ref models.ReferenceRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return ref, fmt.Errorf("read reference: %w", err)
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return ref, fmt.Errorf("parse reference %s: %w", path, err)
	}
	return ref, nil
}

func writeReport(w io.Writer, format string, report extractReport) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
