package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// NodeID is an identifier inside a submitted curriculum tree. Authoring
// clients send numeric ids for rows they know about and temporary string
// ids (or nothing) for new nodes, so it accepts either. An id that is not
// a positive integer never resolves and the node is treated as new.
type NodeID struct {
	value int64
	valid bool
}

// Int64 returns the numeric id and whether one was supplied.
func (n NodeID) Int64() (int64, bool) {
	return n.value, n.valid
}

// NewNodeID builds a resolved NodeID, mainly for tests and responses.
func NewNodeID(v int64) NodeID {
	return NodeID{value: v, valid: true}
}

// UnmarshalJSON accepts a JSON number, a numeric string, or anything else
// (treated as unresolved).
func (n *NodeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = NodeID{}
		return nil
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case float64:
		if v == float64(int64(v)) && v > 0 {
			*n = NodeID{value: int64(v), valid: true}
			return nil
		}
	case string:
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			*n = NodeID{value: id, valid: true}
			return nil
		}
	}

	*n = NodeID{}
	return nil
}

// MarshalJSON renders the numeric id or null.
func (n NodeID) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, n.value, 10), nil
}

// CourseTreeInput is the nested payload accepted by course create/update.
type CourseTreeInput struct {
	Title            string         `json:"title" validate:"required,max=255"`
	Description      string         `json:"description" validate:"required"`
	ShortDescription string         `json:"short_description" validate:"max=500"`
	Category         string         `json:"category" validate:"required,max=100"`
	Level            string         `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Language         string         `json:"language" validate:"omitempty,oneof=en fr es ar"`
	VideoPreviewURL  string         `json:"video_preview_url" validate:"omitempty,url"`
	Price            float64        `json:"price" validate:"gte=0"`
	DiscountPrice    *float64       `json:"discount_price" validate:"omitempty,gte=0"`
	DurationHours    int            `json:"duration_hours" validate:"gte=0"`
	Requirements     string         `json:"requirements"`
	Outcomes         string         `json:"outcomes"`
	IsPublished      bool           `json:"is_published"`
	IsFeatured       bool           `json:"is_featured"`
	Sections         []SectionInput `json:"sections" validate:"dive"`
}

// SectionInput is one section of the submitted tree. A resolvable ID means
// update-in-place; anything else means create.
type SectionInput struct {
	ID          NodeID        `json:"id"`
	Title       string        `json:"title" validate:"required,max=255"`
	Description string        `json:"description"`
	Order       *int          `json:"order"`
	Lessons     []LessonInput `json:"lessons" validate:"dive"`
}

// LessonInput is one lesson of the submitted tree.
type LessonInput struct {
	ID        NodeID     `json:"id"`
	Title     string     `json:"title" validate:"required,max=255"`
	Type      string     `json:"lesson_type" validate:"omitempty,oneof=video article quiz assignment"`
	VideoURL  *string    `json:"video_url"`
	Content   string     `json:"content"`
	Summary   string     `json:"summary"`
	Order     *int       `json:"order"`
	Duration  string     `json:"duration" validate:"max=20"`
	IsPreview bool       `json:"is_preview"`
	Quiz      *QuizInput `json:"quiz"`
}

// QuizInput carries a quiz with its full question set. On update the stored
// question set is replaced wholesale by this one.
type QuizInput struct {
	Title     string          `json:"title" validate:"required,max=255"`
	XPReward  int             `json:"xp_reward" validate:"gte=0"`
	Questions []QuestionInput `json:"questions" validate:"dive"`
}

// QuestionInput is one question with its choices.
type QuestionInput struct {
	Text        string        `json:"text" validate:"required"`
	Explanation string        `json:"explanation"`
	Choices     []ChoiceInput `json:"choices" validate:"dive"`
}

// ChoiceInput is one answer option.
type ChoiceInput struct {
	Text      string `json:"text" validate:"required,max=255"`
	IsCorrect bool   `json:"is_correct"`
}
