package handlers

import (
	"github.com/asmaravianti/ecg-compression/internal/services"
	"github.com/asmaravianti/ecg-compression/internal/storage"
)

var (
	codabench services.Platform
	tracker   *services.Tracker
	files     storage.Store
)

// Init wires the shared collaborators. Called once from main; tests swap
// in fakes.
func Init(client services.Platform, t *services.Tracker, store storage.Store) {
	codabench = client
	tracker = t
	files = store
}
