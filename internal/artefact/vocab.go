package artefact

// Type classifies what role an artifact plays in a workflow.
type Type string

const (
	// TypeResult marks consumable outputs; only results take part in
	// necessity checks and default batch selections.
	TypeResult Type = "result"
	// TypeConfig marks configuration payloads fed into tools.
	TypeConfig Type = "config"
	// TypeMisc marks everything else (logs, launch scripts, scratch files).
	TypeMisc Type = "misc"
)

// Known reports whether t is part of the type vocabulary.
func (t Type) Known() bool {
	switch t {
	case TypeResult, TypeConfig, TypeMisc:
		return true
	}
	return false
}

// Format names the semantic content format of a payload. The vocabulary is
// open: wrappers may introduce formats not listed here, so Format carries no
// Known() gate.
type Format string

const (
	FormatITK              Format = "itk"
	FormatDICOM            Format = "dicom"
	FormatHelaxDICOM       Format = "helax_dicom"
	FormatVirtuos          Format = "virtuos"
	FormatRTTBStatsXML     Format = "rttb_stats_xml"
	FormatRTTBCumDVHXML    Format = "rttb_cum_dvh_xml"
	FormatMatchPoint       Format = "matchpoint"
	FormatMatchPointPoints Format = "matchpoint_pointset"
	FormatSlicerPointset   Format = "slicer_pointset"
	FormatPlmCxt           Format = "plm_cxt"
	FormatCSV              Format = "csv"
	FormatBatch            Format = "bat"
)
