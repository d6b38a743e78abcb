package merge

import (
	"strings"

	"github.com/rs/zerolog"
)

// Stats is the diagnostics record of one Merge.
type Stats struct {
	Files        int        `yaml:"files"`
	Total        int        `yaml:"total"` // rules seen, duplicates and skipped included
	SkipListSize int        `yaml:"skip_list_size"`
	Kept         int        `yaml:"kept"`
	KeptPercent  int        `yaml:"kept_percent"` // 100*Kept/Total, 0 for no rules
	Skipped      int        `yaml:"skipped"`
	Duplicates   int        `yaml:"duplicates"` // definitions replaced by a later one, in-file ones included
	Dangling     int        `yaml:"dangling"`   // references to names not in the corpus
	Cycles       [][]string `yaml:"cycles,omitempty"`
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (s Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Int("files", s.Files).
		Int("total", s.Total).
		Int("skip_list_size", s.SkipListSize).
		Int("kept", s.Kept).
		Int("kept_percent", s.KeptPercent).
		Int("skipped", s.Skipped).
		Int("duplicates", s.Duplicates).
		Int("dangling", s.Dangling)
	if len(s.Cycles) > 0 {
		arr := zerolog.Arr()
		for _, c := range s.Cycles {
			arr.Str(strings.Join(c, ", "))
		}
		e.Array("cycles", arr)
	}
}
