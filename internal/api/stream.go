package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"minaret/internal/geomath"
	"minaret/internal/types"
)

// Stream tuning. Writes are bounded so one dead client cannot wedge its
// goroutine; reads are bounded to a tiny frame because clients only send
// heading samples.
const (
	streamWriteTimeout = 5 * time.Second
	streamReadLimit    = 512
	streamPongWait     = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 1024,
	// Origin enforcement matches the permissive CORS policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// headingFrame is one inbound message on the heading stream: a raw
// heading plus the platform-native accuracy code.
type headingFrame struct {
	Heading      float64 `json:"heading"`
	AccuracyCode int     `json:"accuracy_code"`
}

// HandleQiblaStream upgrades to a WebSocket and runs a per-connection
// tracking session: every inbound heading sample yields one outbound
// qibla reading. The location and platform are fixed at connect time via
// query parameters.
func (s *Server) HandleQiblaStream(w http.ResponseWriter, r *http.Request) {
	coord, err := s.coordinateFromQuery(r)
	if err != nil {
		Error(w, r, err)
		return
	}

	platform := geomath.Platform(r.URL.Query().Get("platform"))
	switch platform {
	case geomath.PlatformIOS, geomath.PlatformAndroid:
	default:
		Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"platform must be ios or android",
			nil,
		))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake failure. The heading
		// stream never started, so downstream readings would carry
		// nothing; surfaced in logs as a sensor failure.
		s.Logger.WarnContext(r.Context(), "heading stream failed to start",
			"code", string(types.ErrCodeSensorUnavailable),
			"error", err,
		)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	tracker := s.Compass.NewTracker(coord)
	logger := s.Logger.With(
		"location", coord.String(),
		"platform", string(platform),
		"request_id", types.GetRequestID(r.Context()),
	)
	logger.Info("heading stream opened")

	for {
		var frame headingFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("heading stream closed unexpectedly",
					"code", string(types.ErrCodeSensorUnavailable),
					"error", err,
				)
			} else {
				logger.Info("heading stream closed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))

		reading := tracker.Process(types.HeadingSample{
			Heading:  frame.Heading,
			Accuracy: geomath.ClassifyAccuracy(frame.AccuracyCode, platform),
		})

		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(reading); err != nil {
			logger.Warn("heading stream write failed", "error", err)
			return
		}
	}
}
