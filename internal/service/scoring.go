package service

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stemsi/examgate/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Score grades answers against the exam's answer key. answers[i] is the
// 0-based option chosen for question i, or nil when unanswered. Answers past
// the last question are ignored and missing ones count as unanswered.
func Score(spec *model.ExamSpec, answers []*int) model.Outcome {
	marks := spec.MarksPerQuestion
	if marks <= 0 {
		marks = model.DefaultMarksPerQuestion
	}

	total := len(spec.Questions) * marks
	score := 0
	for i, q := range spec.Questions {
		if i >= len(answers) || answers[i] == nil {
			continue
		}
		if *answers[i] == q.CorrectOption-1 {
			score += marks
		}
	}

	percentage := Percentage(score, total)
	status := model.ResultStatusFail
	if percentage >= spec.PassingPercentage {
		status = model.ResultStatusPass
	}

	return model.Outcome{
		Score:      score,
		Total:      total,
		Percentage: percentage,
		Status:     status,
	}
}

// Percentage returns score/total as a whole percentage rounded half-up.
// A zero total yields 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(score)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(0).
		IntPart())
}

// ParseAnswers decodes the raw "answers" field of a submission. The field
// must be a JSON array; anything else is ErrInvalidAnswers. Elements are
// coerced leniently: integers, integral numbers and numeric strings become
// option indexes, every other element is treated as unanswered.
func ParseAnswers(raw json.RawMessage) ([]*int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, ErrInvalidAnswers
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var elems []any
	if err := dec.Decode(&elems); err != nil {
		return nil, ErrInvalidAnswers
	}

	answers := make([]*int, len(elems))
	for i, e := range elems {
		answers[i] = coerceAnswer(e)
	}
	return answers, nil
}

func coerceAnswer(v any) *int {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return intFromInt64(n)
		}
		if f, err := t.Float64(); err == nil {
			return intFromFloat(f)
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return intFromInt64(n)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return intFromFloat(f)
		}
	}
	return nil
}

func intFromInt64(n int64) *int {
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil
	}
	v := int(n)
	return &v
}

func intFromFloat(f float64) *int {
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return nil
	}
	v := int(f)
	return &v
}
