package service

import (
	"testing"

	"quizdesk_backend/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestKioskPolicyKeys(t *testing.T) {
	policy := NewKioskPolicy(config.KioskConfig{
		AppOrigin:   "https://quiz.example.com/",
		BlockedKeys: []string{"Escape", "PrintScreen"},
	})

	tests := []struct {
		name    string
		ev      KeyEvent
		blocked bool
	}{
		{"ctrl combo", KeyEvent{Key: "c", Control: true}, true},
		{"alt tab", KeyEvent{Key: "Tab", Alt: true}, true},
		{"meta", KeyEvent{Key: "r", Meta: true}, true},
		{"reload key", KeyEvent{Key: "F5"}, true},
		{"f12", KeyEvent{Key: "F12"}, true},
		{"capital F", KeyEvent{Key: "F"}, false},
		{"f25 is not a function key", KeyEvent{Key: "F25"}, false},
		{"blocked key case-insensitive", KeyEvent{Key: "escape"}, true},
		{"plain letter", KeyEvent{Key: "a"}, false},
		{"enter", KeyEvent{Key: "Enter"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.blocked, policy.BlocksKey(tt.ev))
		})
	}
}

func TestKioskPolicyNavigation(t *testing.T) {
	policy := NewKioskPolicy(config.KioskConfig{AppOrigin: "https://quiz.example.com/"})
	assert.Equal(t, "https://quiz.example.com", policy.AppOrigin)

	assert.True(t, policy.AllowsNavigation("https://quiz.example.com/student/quiz/abc"))
	assert.True(t, policy.AllowsNavigation("https://QUIZ.example.com"))
	assert.False(t, policy.AllowsNavigation("http://quiz.example.com/"))
	assert.False(t, policy.AllowsNavigation("https://evil.example.com/"))
	assert.False(t, policy.AllowsNavigation("https://quiz.example.com:8443/"))
	assert.False(t, policy.AllowsNavigation("::not a url"))

	assert.False(t, NewKioskPolicy(config.KioskConfig{}).AllowsNavigation("https://quiz.example.com/"))
}

func TestKioskPolicyRetry(t *testing.T) {
	policy := NewKioskPolicy(config.KioskConfig{ReloadDelayMs: 1500})
	assert.Equal(t, 1500, policy.ReloadDelayMs)
	assert.True(t, policy.ShouldRetryLoad(-6))
	assert.False(t, policy.ShouldRetryLoad(-105))
	assert.False(t, policy.ShouldRetryLoad(0))
}
