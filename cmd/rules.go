package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// RuleFile is the YAML document read by "rules import" and written by "rules export".
type RuleFile struct {
	Rules []RuleDoc `yaml:"rules"`
}

// RuleDoc is one trigger in a rule file. An empty ID creates a new trigger on import.
type RuleDoc struct {
	ID             string  `yaml:"id,omitempty"`
	EquipmentID    string  `yaml:"equipment_id"`
	Name           string  `yaml:"name"`
	Description    string  `yaml:"description,omitempty"`
	Parameter      string  `yaml:"parameter"`
	Operator       string  `yaml:"operator"`
	Threshold      float64 `yaml:"threshold"`
	ActionTemplate string  `yaml:"action_template,omitempty"`
	Priority       string  `yaml:"priority,omitempty"`
	Active         *bool   `yaml:"active,omitempty"`
	SortOrder      int     `yaml:"sort_order,omitempty"`
}

func (d *RuleDoc) toEntity() *entities.MaintenanceTrigger {
	active := true
	if d.Active != nil {
		active = *d.Active
	}
	return &entities.MaintenanceTrigger{
		ID:             d.ID,
		EquipmentID:    d.EquipmentID,
		Name:           d.Name,
		Description:    d.Description,
		Parameter:      d.Parameter,
		Operator:       d.Operator,
		Threshold:      d.Threshold,
		ActionTemplate: d.ActionTemplate,
		Priority:       d.Priority,
		IsActive:       active,
		SortOrder:      d.SortOrder,
	}
}

func ruleDocFrom(t *entities.MaintenanceTrigger) RuleDoc {
	active := t.IsActive
	return RuleDoc{
		ID:             t.ID,
		EquipmentID:    t.EquipmentID,
		Name:           t.Name,
		Description:    t.Description,
		Parameter:      t.Parameter,
		Operator:       t.Operator,
		Threshold:      t.Threshold,
		ActionTemplate: t.ActionTemplate,
		Priority:       t.Priority,
		Active:         &active,
		SortOrder:      t.SortOrder,
	}
}

func newRulesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List, import and export triggers",
	}
	cmd.AddCommand(newRulesListCommand(a), newRulesExportCommand(a), newRulesImportCommand(a))
	return cmd
}

func newRulesListCommand(a *app) *cobra.Command {
	var equipmentID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List triggers in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRulesList(cmd.Context(), a, equipmentID, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&equipmentID, "equipment", "e", "", "only triggers of this equipment")
	return cmd
}

func runRulesList(ctx context.Context, a *app, equipmentID string, out io.Writer) error {
	st, engine, err := a.openEngine(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	defer engine.Stop()

	rules, err := engine.ListRules(ctx, equipmentID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEQUIPMENT\tNAME\tCONDITION\tPRIORITY\tACTIVE")
	for i := range rules {
		r := &rules[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s %s %s\t%s\t%t\n",
			r.ID, r.EquipmentID, r.Name, r.Parameter, r.Operator, cbm.FormatValue(r.Threshold), r.Priority, r.IsActive)
	}
	return w.Flush()
}

func newRulesExportCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all triggers as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer func() { _ = f.Close() }()
				out = f
			}
			return runRulesExport(cmd.Context(), a, out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}

func runRulesExport(ctx context.Context, a *app, out io.Writer) error {
	st, engine, err := a.openEngine(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	defer engine.Stop()

	rules, err := engine.ListRules(ctx, "")
	if err != nil {
		return err
	}
	doc := RuleFile{Rules: make([]RuleDoc, 0, len(rules))}
	for i := range rules {
		doc.Rules = append(doc.Rules, ruleDocFrom(&rules[i]))
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}
	return enc.Close()
}

func newRulesImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create or update triggers from a YAML file",
		Long: `Import triggers from a rule file. Rules whose id already exists are replaced,
the rest are created. Every rule is validated before anything is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			return runRulesImport(cmd.Context(), a, data, cmd.OutOrStdout())
		},
	}
}

// ImportSummary counts what an import changed.
type ImportSummary struct {
	Created int
	Updated int
}

func runRulesImport(ctx context.Context, a *app, data []byte, out io.Writer) error {
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse rule file: %w", err)
	}

	rules := make([]*entities.MaintenanceTrigger, 0, len(file.Rules))
	for i := range file.Rules {
		rule := file.Rules[i].toEntity()
		if err := cbm.ValidateTrigger(rule); err != nil {
			return fmt.Errorf("rule %d (%s): %w", i+1, file.Rules[i].Name, err)
		}
		rules = append(rules, rule)
	}

	st, engine, err := a.openEngine(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	defer engine.Stop()

	summary, err := importRules(ctx, engine, rules)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %d rules (%d created, %d updated)\n", summary.Created+summary.Updated, summary.Created, summary.Updated)
	return nil
}

// importRules upserts rules by id. It stops at the first failure.
func importRules(ctx context.Context, engine *cbm.Engine, rules []*entities.MaintenanceTrigger) (ImportSummary, error) {
	var summary ImportSummary
	for _, rule := range rules {
		if rule.ID != "" {
			_, err := engine.GetRule(ctx, rule.ID)
			switch {
			case err == nil:
				if err := engine.UpdateRule(ctx, rule); err != nil {
					return summary, fmt.Errorf("update %s: %w", rule.ID, err)
				}
				summary.Updated++
				continue
			case !errors.IsNotFound(err):
				return summary, err
			}
		}
		if err := engine.CreateRule(ctx, rule); err != nil {
			return summary, fmt.Errorf("create %s: %w", rule.Name, err)
		}
		summary.Created++
	}
	return summary, nil
}
