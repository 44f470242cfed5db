package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Conversion turns the raw text of one CSV column into one or more float
// columns.  The result has one row per input value, and every row has the
// same width.
type Conversion func(column []string) ([][]float32, error)

// Float parses each value as a single float column.
func Float(column []string) ([][]float32, error) {
	values, err := parseColumn(column)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(values))
	for i, v := range values {
		out[i] = []float32{float32(v)}
	}
	return out, nil
}

// NormaliseMean parses each value as a float and rescales the column to
// (x - mean) / stddev.  A constant column is only shifted to zero.
func NormaliseMean(column []string) ([][]float32, error) {
	values, err := parseColumn(column)
	if err != nil {
		return nil, err
	}
	mean, std := stat.MeanStdDev(values, nil)
	if std == 0 || math.IsNaN(std) {
		std = 1
	}
	out := make([][]float32, len(values))
	for i, v := range values {
		out[i] = []float32{float32((v - mean) / std)}
	}
	return out, nil
}

// OneHot expands the column into one indicator column per distinct value.
// Indicator columns are ordered by the sorted distinct values.
func OneHot(column []string) ([][]float32, error) {
	distinct := slices.Clone(column)
	for i := range distinct {
		distinct[i] = strings.TrimSpace(distinct[i])
	}
	slices.Sort(distinct)
	distinct = slices.Compact(distinct)

	out := make([][]float32, len(column))
	for i, raw := range column {
		idx, _ := slices.BinarySearch(distinct, strings.TrimSpace(raw))
		out[i] = make([]float32, len(distinct))
		out[i][idx] = 1
	}
	return out, nil
}

// Func applies f to each value to produce a single float column.
func Func(f func(string) float32) Conversion {
	return func(column []string) ([][]float32, error) {
		out := make([][]float32, len(column))
		for i, raw := range column {
			out[i] = []float32{f(raw)}
		}
		return out, nil
	}
}

func parseColumn(column []string) ([]float64, error) {
	values := make([]float64, len(column))
	for i, raw := range column {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

type columnGroup struct {
	cols []int
	conv Conversion
}

// Builder assembles a Set from a CSV file.  Errors are deferred to Build.
type Builder struct {
	records [][]string
	inputs  []columnGroup
	targets []columnGroup

	testRatio float64
	rand      *rand.Rand

	err error
}

func NewBuilder() *Builder {
	return &Builder{}
}

// ReadCSV loads every record of path.  The first record is a header and is
// skipped.
func (b *Builder) ReadCSV(path string) *Builder {
	if b.err != nil {
		return b
	}
	f, err := os.Open(path)
	if err != nil {
		b.err = fmt.Errorf("while opening csv: %w", err)
		return b
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		b.err = fmt.Errorf("while reading %s: %w", path, err)
		return b
	}
	if len(records) > 0 {
		records = records[1:]
	}
	b.records = records
	return b
}

func (b *Builder) AddInputColumns(cols []int, conv Conversion) *Builder {
	b.inputs = append(b.inputs, columnGroup{cols: cols, conv: conv})
	return b
}

func (b *Builder) AddTargetColumns(cols []int, conv Conversion) *Builder {
	b.targets = append(b.targets, columnGroup{cols: cols, conv: conv})
	return b
}

// AllocateToTestData holds back ratio of the rows, chosen after shuffling,
// as test data.
func (b *Builder) AllocateToTestData(ratio float64) *Builder {
	if ratio < 0 || ratio >= 1 {
		b.err = fmt.Errorf("test ratio %v outside [0, 1)", ratio)
		return b
	}
	b.testRatio = ratio
	return b
}

// WithRand sets the source used to pick test rows.  Without it a source
// seeded with 1 is used.
func (b *Builder) WithRand(r *rand.Rand) *Builder {
	b.rand = r
	return b
}

func (b *Builder) Build() (*Set, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.records) == 0 {
		return nil, fmt.Errorf("no data rows")
	}
	if len(b.inputs) == 0 || len(b.targets) == 0 {
		return nil, fmt.Errorf("need at least one input and one target column")
	}

	inputs, err := b.convert(b.inputs)
	if err != nil {
		return nil, fmt.Errorf("while converting input columns: %w", err)
	}
	targets, err := b.convert(b.targets)
	if err != nil {
		return nil, fmt.Errorf("while converting target columns: %w", err)
	}

	samples := make([]Sample, len(b.records))
	for i := range samples {
		samples[i] = Sample{Input: inputs[i], Target: targets[i]}
	}

	r := b.rand
	if r == nil {
		r = rand.New(rand.NewSource(1))
	}
	r.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})

	nTest := int(math.Round(b.testRatio * float64(len(samples))))
	return NewSet(samples[nTest:], samples[:nTest])
}

// convert applies every group in order and concatenates the resulting
// columns row by row.
func (b *Builder) convert(groups []columnGroup) ([][]float32, error) {
	rows := make([][]float32, len(b.records))
	for _, group := range groups {
		for _, col := range group.cols {
			raw := make([]string, len(b.records))
			for i, rec := range b.records {
				if col < 0 || col >= len(rec) {
					return nil, fmt.Errorf("column %d out of range in row %d", col, i)
				}
				raw[i] = rec[col]
			}
			converted, err := group.conv(raw)
			if err != nil {
				return nil, fmt.Errorf("column %d: %w", col, err)
			}
			for i := range rows {
				rows[i] = append(rows[i], converted[i]...)
			}
		}
	}
	return rows, nil
}
