package model

// Question is a single multiple-choice question. CorrectOption is 1-based.
type Question struct {
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_answer"`
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	Index   int      `json:"index"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}

// ForStudents strips the answer key from a question list.
func ForStudents(questions []Question) []QuestionForStudent {
	out := make([]QuestionForStudent, len(questions))
	for i, q := range questions {
		out[i] = QuestionForStudent{
			Index:   i,
			Prompt:  q.Prompt,
			Options: q.Options,
		}
	}
	return out
}
