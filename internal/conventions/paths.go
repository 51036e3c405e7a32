package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default tac2ar data directory name (relative to home).
	DefaultDataDir = ".tac2ar"
	// HistoryDBFile is the run history database filename.
	HistoryDBFile = "history.db"
	// ConfigFile is the default pipeline configuration filename.
	ConfigFile = "tac2ar.yaml"

	// PipelineLogFile is where the stage runner output is captured.
	PipelineLogFile = "pipeline.log"
	// KidneyLogFile is where the kidney shell pipeline output is saved.
	KidneyLogFile = "run_kidney.log"

	// Default script names, relative to the config file directory.

	// SegmentationScriptFile is the default segmentation entry script.
	SegmentationScriptFile = "segmentator_pipeline.py"
	// BlenderScriptFile is the default Blender pipeline script.
	BlenderScriptFile = "blender_pipeline.py"
)

// HistoryDBPath returns the run history database path inside a data directory.
func HistoryDBPath(dataDir string) string {
	return filepath.Join(dataDir, HistoryDBFile)
}

// LogPaths returns the pipeline and kidney log paths inside a directory.
func LogPaths(dir string) (pipelineLog, kidneyLog string) {
	return filepath.Join(dir, PipelineLogFile), filepath.Join(dir, KidneyLogFile)
}
