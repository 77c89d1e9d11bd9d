// Package schema holds the static rules a pipeline configuration document
// is checked against: compulsory keys, closed enumerations and
// cross-field requirements.
package schema

import "slices"

// Top-level document keys.
const (
	KeyWorkflowKind      = "workflow_kind"
	KeyProdType          = "prod_type"
	KeySourceEnvironment = "source_environment"
	KeyStagesToRun       = "stages_to_run"
	KeyStages            = "stages"
	KeyProdID            = "prod_id"
	KeyDL1ReferenceID    = "dl1_reference_id"
	KeyNoiseTuneDataRun  = "dl1_noise_tune_data_run"
	KeyNoiseTuneMCRun    = "dl1_noise_tune_mc_run"
	KeySlurmConfig       = "slurm_config"
	KeyBatchConfig       = "batch_config"
)

// Nested keys.
const (
	KeySourceFile   = "source_file"
	KeyCondaEnv     = "conda_env"
	KeyUserAccount  = "user_account"
	KeyBatchSource  = "source_environment"
	KeyBatchAccount = "slurm_account"
	KeyMergeNoImage = "merging_no_image"
	KeyStageInput   = "input"
)

// DefaultProdID is the user suffix used when prod_id is absent.
const DefaultProdID = "v00"

// Stage names that carry rules or diagnostics.
const (
	StageR0ToDL1  = "r0_to_dl1"
	StageDL1AB    = "dl1ab"
	StageMergeDL1 = "merge_dl1"
)

// CompulsoryKeys must all be present at the top level, checked in this order.
var CompulsoryKeys = []string{
	KeyWorkflowKind,
	KeyProdType,
	KeySourceEnvironment,
	KeyStagesToRun,
	KeyStages,
}

// StageRequirement states that requesting Stage makes Key compulsory.
type StageRequirement struct {
	Stage string
	Key   string
}

// StageRequirements lists every stage-conditional key.
var StageRequirements = []StageRequirement{
	{Stage: StageDL1AB, Key: KeyDL1ReferenceID},
}

// KeyPair is a symmetric pairing: either both keys are set or neither is.
type KeyPair struct {
	A, B string
}

// PairedKeys lists the symmetric pairings.
var PairedKeys = []KeyPair{
	{A: KeyNoiseTuneDataRun, B: KeyNoiseTuneMCRun},
}

// WorkflowKind selects the toolchain that produces (or will process) the data.
type WorkflowKind string

const (
	WorkflowHiPeRTA  WorkflowKind = "hiperta"
	WorkflowLSTChain WorkflowKind = "lstchain"
	WorkflowCTAPipe  WorkflowKind = "ctapipe"
)

// WorkflowKinds is the closed set of accepted workflow kinds.
var WorkflowKinds = []WorkflowKind{WorkflowHiPeRTA, WorkflowLSTChain, WorkflowCTAPipe}

func (w WorkflowKind) Valid() bool { return slices.Contains(WorkflowKinds, w) }

// Toolchain returns the toolchain whose version tags runs of this kind.
// hiperta does not expose its own version, so lstchain's is used.
func (w WorkflowKind) Toolchain() (Toolchain, bool) {
	switch w {
	case WorkflowLSTChain, WorkflowHiPeRTA:
		return ToolchainLSTChain, true
	case WorkflowCTAPipe:
		return ToolchainCTAPipe, true
	}
	return "", false
}

// ProductionType identifies the MC production layout a document targets.
type ProductionType string

const (
	ProdPathConfigProd5             ProductionType = "PathConfigProd5"
	ProdPathConfigProd5Trans80      ProductionType = "PathConfigProd5Trans80"
	ProdPathConfigProd5Trans80DL1AB ProductionType = "PathConfigProd5Trans80Dl1ab"
	ProdPathConfigAllSky            ProductionType = "PathConfigAllSky"
)

// ProductionTypes is the closed set of accepted production types.
var ProductionTypes = []ProductionType{
	ProdPathConfigProd5,
	ProdPathConfigProd5Trans80,
	ProdPathConfigProd5Trans80DL1AB,
	ProdPathConfigAllSky,
}

var productionFamilies = map[ProductionType]string{
	ProdPathConfigProd5:             "prod5",
	ProdPathConfigProd5Trans80:      "prod5_trans_80",
	ProdPathConfigProd5Trans80DL1AB: "prod5_trans_80",
	ProdPathConfigAllSky:            "prod_all_sky",
}

func (p ProductionType) Valid() bool { return slices.Contains(ProductionTypes, p) }

// Family returns the production family label used in run identifiers.
func (p ProductionType) Family() (string, bool) {
	f, ok := productionFamilies[p]
	return f, ok
}

// Toolchain is an installable package whose version is embedded in run
// identifiers.
type Toolchain string

const (
	ToolchainLSTChain Toolchain = "lstchain"
	ToolchainCTAPipe  Toolchain = "ctapipe"
)

// Toolchains is the closed set of introspectable toolchains.
var Toolchains = []Toolchain{ToolchainLSTChain, ToolchainCTAPipe}

// Strings converts a closed set to its string values, for diagnostics.
func Strings[T ~string](vals []T) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}
