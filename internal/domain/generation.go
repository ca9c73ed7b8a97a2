package domain

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

type GenerationType string

const (
	GenerationTypeTTS          GenerationType = "tts"
	GenerationTypeMultiSpeaker GenerationType = "multi-speaker"
)

// Valid reports whether t is one of the stored generation kinds.
func (t GenerationType) Valid() bool {
	return t == GenerationTypeTTS || t == GenerationTypeMultiSpeaker
}

type GenerationStatus string

const (
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusProcessing GenerationStatus = "processing"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

var generationTransitions = map[GenerationStatus][]GenerationStatus{
	GenerationStatusProcessing: {GenerationStatusPending},
	GenerationStatusCompleted:  {GenerationStatusProcessing},
	GenerationStatusFailed:     {GenerationStatusPending, GenerationStatusProcessing},
}

// AllowedPredecessors lists the statuses a record may hold right before moving to s.
// An empty result means s can never be entered through an update.
func AllowedPredecessors(s GenerationStatus) []GenerationStatus {
	return generationTransitions[s]
}

// VoiceConfig is the serialized voice selection of a generation: a single
// voice for tts, a speaker to voice mapping for multi-speaker.
type VoiceConfig struct {
	Voice    string            `json:"voice,omitempty"`
	Speakers map[string]string `json:"speakers,omitempty"`
}

func (c VoiceConfig) Marshal() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal voice config: %w", err)
	}
	return string(b), nil
}

func ParseVoiceConfig(raw string) (VoiceConfig, error) {
	var cfg VoiceConfig
	if raw == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return VoiceConfig{}, fmt.Errorf("parse voice config: %w", err)
	}
	return cfg, nil
}

// VoiceGeneration is the durable record of one synthesis request.
type VoiceGeneration struct {
	ID            int64
	UserID        int64
	Type          GenerationType
	Text          string
	VoiceConfig   string
	AudioURL      *string
	AudioFilename *string
	Duration      *float64
	Characters    int
	Status        GenerationStatus
	ErrorMessage  *string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// Voice decodes the stored voice configuration.
func (g VoiceGeneration) Voice() (VoiceConfig, error) {
	return ParseVoiceConfig(g.VoiceConfig)
}

// GenerationUpdate is the closed set of fields a generation may change after
// creation. Nil members are left untouched.
type GenerationUpdate struct {
	AudioURL      *string
	AudioFilename *string
	Duration      *float64
	Status        *GenerationStatus
	ErrorMessage  *string
	CompletedAt   *time.Time
}

// Empty reports whether the update carries no field at all.
func (u GenerationUpdate) Empty() bool {
	return u.AudioURL == nil && u.AudioFilename == nil && u.Duration == nil &&
		u.Status == nil && u.ErrorMessage == nil && u.CompletedAt == nil
}

// CountCharacters returns the billable length of a text.
func CountCharacters(text string) int {
	return utf8.RuneCountInString(text)
}
