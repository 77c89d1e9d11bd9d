package complete

import (
	"fmt"
	"log/slog"
	"slices"

	"lstmcpipe/internal/schema"
)

// LogSummary writes the human-readable overview of a completed document.
func LogSummary(l *slog.Logger, c Completed) {
	doc := c.Map()
	stages := c.Stages()

	l.Info("pipeline configuration completed", "workflow_kind", string(c.WorkflowKind()))
	l.Info("run identifier", "prod_id", c.RunIdentifier())
	l.Info("stages to be run", "stages", stages)

	if slices.Contains(stages, schema.StageMergeDL1) {
		var noImage any
		if m, ok := stageBlock(doc, schema.StageMergeDL1).(map[string]any); ok {
			noImage = m[schema.KeyMergeNoImage]
		}
		l.Info("merging options", "no_image", noImage)
	}

	switch {
	case slices.Contains(stages, schema.StageR0ToDL1):
		l.Info("DL0 files will be read from", "inputs", StageInputs(doc, schema.StageR0ToDL1))
	case slices.Contains(stages, schema.StageDL1AB):
		l.Info("applying dl1ab processing", "dl1_reference_id", doc[schema.KeyDL1ReferenceID])
		l.Info("DL1 files will be read from", "inputs", StageInputs(doc, schema.StageDL1AB))
	}

	b := c.Batch()
	l.Info("batch configuration",
		"source_environment", b.EnvironmentActivation,
		"slurm_account", b.ResourceAccount,
	)
	l.Warn("outputs with the same prod_id produced on the same day will be overwritten")
}

// StageInputs collects the input entries of a stage's job list.
func StageInputs(doc map[string]any, stage string) []string {
	jobs, _ := stageBlock(doc, stage).([]any)
	var out []string
	for _, j := range jobs {
		job, ok := j.(map[string]any)
		if !ok {
			continue
		}
		if in, ok := job[schema.KeyStageInput]; ok && in != nil {
			out = append(out, fmt.Sprint(in))
		}
	}
	return out
}

// stageBlock looks a stage up under stages, then at the top level.
func stageBlock(doc map[string]any, stage string) any {
	if st, ok := doc[schema.KeyStages].(map[string]any); ok {
		if b, ok := st[stage]; ok {
			return b
		}
	}
	return doc[stage]
}
