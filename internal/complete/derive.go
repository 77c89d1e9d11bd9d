package complete

import (
	"fmt"
	"time"

	"lstmcpipe/internal/schema"
)

// hiperta runs are tagged with a fixed RTA release.
const hipertaTag = "vRTA420"

// BatchSettings are handed to the job-submission system.
type BatchSettings struct {
	EnvironmentActivation string
	ResourceAccount       string
}

// Map renders b under the keys downstream consumers read.
func (b BatchSettings) Map() map[string]any {
	return map[string]any{
		schema.KeyBatchSource:  b.EnvironmentActivation,
		schema.KeyBatchAccount: b.ResourceAccount,
	}
}

// DateStamp formats t as YYYYMMDD.
func DateStamp(t time.Time) string {
	return t.Format("20060102")
}

// VariantSuffix tags a run with the toolchain that processes it.
func VariantSuffix(kind schema.WorkflowKind, version string) (string, error) {
	switch kind {
	case schema.WorkflowLSTChain:
		return "v" + version, nil
	case schema.WorkflowCTAPipe:
		return "vctapipe" + version, nil
	case schema.WorkflowHiPeRTA:
		return hipertaTag + "_v" + version, nil
	}
	return "", &InternalError{Msg: fmt.Sprintf("no variant suffix for workflow kind %q", kind)}
}

// RunIdentifier composes {date}_{variant}_{family}_{suffix}.
func RunIdentifier(date time.Time, kind schema.WorkflowKind, version string, prod schema.ProductionType, suffix string) (string, error) {
	variant, err := VariantSuffix(kind, version)
	if err != nil {
		return "", err
	}
	family, ok := prod.Family()
	if !ok {
		return "", &InternalError{Msg: fmt.Sprintf("no production family for %q", prod)}
	}
	return fmt.Sprintf("%s_%s_%s_%s", DateStamp(date), variant, family, suffix), nil
}

// UserSuffix reads the user-chosen prod_id, defaulting to v00.
func UserSuffix(raw map[string]any) string {
	v, ok := raw[schema.KeyProdID]
	if !ok || v == nil {
		return schema.DefaultProdID
	}
	return fmt.Sprint(v)
}

// ActivationCommand builds the shell prefix every batch job runs.
func ActivationCommand(sourceFile, condaEnv string) string {
	return fmt.Sprintf("source %s; conda activate %s; ", sourceFile, condaEnv)
}

// ResourceAccount reads slurm_config.user_account, defaulting to "".
func ResourceAccount(raw map[string]any) string {
	slurm, _ := raw[schema.KeySlurmConfig].(map[string]any)
	return stringField(slurm, schema.KeyUserAccount)
}

// Batch derives the batch settings of a document.
func Batch(raw map[string]any) BatchSettings {
	env, _ := raw[schema.KeySourceEnvironment].(map[string]any)
	return BatchSettings{
		EnvironmentActivation: ActivationCommand(
			stringField(env, schema.KeySourceFile),
			stringField(env, schema.KeyCondaEnv),
		),
		ResourceAccount: ResourceAccount(raw),
	}
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
