package outlier

import (
	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/frame"
)

// Stratum identifies one (program, target) subgroup.
type Stratum struct {
	Program string
	Target  int
	Rows    int
	Flagged []string
}

// SuppressStrata runs detection and suppression independently inside every
// (program, target∈{0,1}) stratum so one class cannot mask the other's tail.
// Programs are visited in first-appearance order, target 0 before 1; rows with
// any other target value are dropped. The strata are concatenated in that order.
func SuppressStrata(f *frame.Frame, programCol, targetCol string, threshold float64, exclude []string) (*frame.Frame, []Stratum, error) {
	prog, err := f.Column(programCol)
	if err != nil {
		return nil, nil, err
	}
	target, err := f.Floats(targetCol)
	if err != nil {
		return nil, nil, err
	}

	skip := append([]string{programCol, targetCol}, exclude...)

	var programs []string
	rowsByKey := map[string][2][]int{}
	for i := 0; i < f.Len(); i++ {
		key, _ := prog.Format(i)
		groups, seen := rowsByKey[key]
		if !seen {
			programs = append(programs, key)
		}
		switch target[i] {
		case 0:
			groups[0] = append(groups[0], i)
		case 1:
			groups[1] = append(groups[1], i)
		}
		rowsByKey[key] = groups
	}

	var parts []*frame.Frame
	var strata []Stratum
	for _, p := range programs {
		for cls := 0; cls < 2; cls++ {
			part := f.Take(rowsByKey[p][cls])
			cols := DetectExtremeColumns(part, threshold, skip...)
			part, err = Suppress(part, cols)
			if err != nil {
				return nil, nil, apperrors.Wrapf(err, "suppress stratum program=%s target=%d", p, cls)
			}
			parts = append(parts, part)
			strata = append(strata, Stratum{Program: p, Target: cls, Rows: part.Len(), Flagged: cols})
		}
	}

	out, err := frame.Concat(parts...)
	if err != nil {
		return nil, nil, err
	}
	return out, strata, nil
}
