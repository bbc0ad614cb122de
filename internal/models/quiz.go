package models

import "time"

// QuizResult результат ответа на вопрос квиза.
// Хранится как Payload записи с Kind = KindQuizResult.
type QuizResult struct {
	LastReviewed  time.Time `json:"last_reviewed,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Category      string    `json:"category"`
	Question      string    `json:"question"`
	UserAnswer    string    `json:"user_answer"`
	CorrectAnswer string    `json:"correct_answer"`
	Explanation   string    `json:"explanation,omitempty"`
	SessionID     string    `json:"session_id"`
	Options       []string  `json:"options,omitempty"`
	ReviewCount   int       `json:"review_count"`
	IsCorrect     bool      `json:"is_correct"`
}

// QuizRecord пара из записи и разобранного результата квиза.
type QuizRecord struct {
	Result   QuizResult
	RecordID string
	Version  int64
}

// CategoryPerformance агрегированная статистика по категории.
type CategoryPerformance struct {
	Category  string `json:"category"`
	Total     int    `json:"total"`
	Incorrect int    `json:"incorrect"`
}

// Accuracy доля правильных ответов в категории, от 0 до 1.
func (p CategoryPerformance) Accuracy() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Total-p.Incorrect) / float64(p.Total)
}
