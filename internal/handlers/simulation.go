package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/traffic-sim/internal/models"
	"github.com/ukydev/traffic-sim/internal/roadnet"
	"github.com/ukydev/traffic-sim/internal/sim"
)

// Simulation is the part of the engine the API exposes.
type Simulation interface {
	RunID() string
	Tick() int64
	Vehicles() []models.Telemetry
	Vehicle(id roadnet.VehicleID) (models.Telemetry, bool)
	Spawn() (roadnet.VehicleID, error)
	AddVehicle(id roadnet.VehicleID, start roadnet.Position) error
	RemoveVehicle(id roadnet.VehicleID) error
	Roads() []models.Road
	Intersections() []models.Intersection
}

// SimulationHandler serves the read-only projection of a running engine
// plus vehicle spawning and removal.
type SimulationHandler struct {
	sim Simulation
}

// NewSimulationHandler creates a handler for s.
func NewSimulationHandler(s Simulation) *SimulationHandler {
	return &SimulationHandler{sim: s}
}

// Health reports liveness and the engine's progress.
func (h *SimulationHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"run_id":   h.sim.RunID(),
		"tick":     h.sim.Tick(),
		"vehicles": len(h.sim.Vehicles()),
	})
}

// ListVehicles returns every vehicle.
func (h *SimulationHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sim.Vehicles())
}

// GetVehicle returns one vehicle.
func (h *SimulationHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	t, ok := h.sim.Vehicle(roadnet.VehicleID(r.PathValue("id")))
	if !ok {
		writeError(w, http.StatusNotFound, "Vehicle not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// SpawnVehicle parks a new vehicle, at a random position unless the body
// names one.
func (h *SimulationHandler) SpawnVehicle(w http.ResponseWriter, r *http.Request) {
	var req models.SpawnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if (req.Road == nil) != (req.Offset == nil) {
		writeError(w, http.StatusBadRequest, "road and offset must be given together")
		return
	}

	var (
		id  roadnet.VehicleID
		err error
	)
	if req.Road == nil {
		id, err = h.sim.Spawn()
	} else {
		id = roadnet.VehicleID(uuid.NewString())
		err = h.sim.AddVehicle(id, roadnet.Position{Road: roadnet.RoadID(*req.Road), Offset: *req.Offset})
	}
	switch {
	case errors.Is(err, sim.ErrInvalidPosition):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, sim.ErrNoFreePosition):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		log.WithError(err).Error("Failed to spawn vehicle")
		writeError(w, http.StatusInternalServerError, "Failed to spawn vehicle")
		return
	}

	t, _ := h.sim.Vehicle(id)
	writeJSON(w, http.StatusCreated, models.SpawnResponse{ID: string(id), Telemetry: t})
}

// RemoveVehicle takes a vehicle off the network.
func (h *SimulationHandler) RemoveVehicle(w http.ResponseWriter, r *http.Request) {
	err := h.sim.RemoveVehicle(roadnet.VehicleID(r.PathValue("id")))
	if errors.Is(err, sim.ErrUnknownVehicle) {
		writeError(w, http.StatusNotFound, "Vehicle not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRoads returns every road with its reservations.
func (h *SimulationHandler) ListRoads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sim.Roads())
}

// ListIntersections returns every intersection with its transits.
func (h *SimulationHandler) ListIntersections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sim.Intersections())
}
