package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"MarketDash/internal/model"
)

// fileState is the on-disk shape of the preference state.
type fileState struct {
	Currency  model.Currency `json:"currency"`
	Favorites []string       `json:"favorites"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// LoadState reads preferences from a JSON file. Returns nil, nil if the file doesn't exist.
func LoadState(filePath string) (*model.Prefs, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &model.Prefs{Currency: st.Currency, Favorites: st.Favorites}, nil
}

// SaveState writes preferences to a JSON file, creating the parent directory if needed.
func SaveState(filePath string, p model.Prefs) error {
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(fileState{
		Currency:  p.Currency,
		Favorites: p.Favorites,
		UpdatedAt: time.Now(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
