package session

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ivoyovchev/climbingtracker99-sub004/internal/telemetry"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/timer"
)

type startRequest struct {
	Kind Kind            `json:"kind"`
	Plan *timer.PlanSpec `json:"plan,omitempty"`
}

type tickRequest struct {
	ElapsedMs int64 `json:"elapsed_ms"`
}

func RegisterRoutes(r fiber.Router, mgr *Manager, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req startRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		userID, _ := c.Locals("user_id").(string)

		var ctrl *Controller
		var err error
		switch req.Kind {
		case KindGPS:
			ctrl, err = mgr.StartGPS(userID)
		case KindExercise:
			if req.Plan == nil {
				return fiber.NewError(fiber.StatusBadRequest, "plan required for exercise sessions")
			}
			var plan timer.Plan
			plan, err = req.Plan.Build()
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			ctrl, err = mgr.StartExercise(userID, plan)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "kind must be gps or exercise")
		}
		if err != nil {
			return errorFor(err)
		}
		return c.Status(fiber.StatusCreated).JSON(ctrl.Live())
	})

	r.Get("/recoverable", authMiddleware, func(c *fiber.Ctx) error {
		sessions, err := mgr.Recoverable(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if sessions == nil {
			sessions = []RecoverableSession{}
		}
		return c.JSON(sessions)
	})

	r.Post("/:id/recover", authMiddleware, func(c *fiber.Ctx) error {
		ctrl, err := mgr.Recover(c.Context(), c.Params("id"))
		if err != nil {
			return errorFor(err)
		}
		return c.JSON(ctrl.Live())
	})

	r.Post("/:id/pause", authMiddleware, command(mgr, func(ctrl *Controller) error {
		return ctrl.Pause()
	}))

	r.Post("/:id/resume", authMiddleware, command(mgr, func(ctrl *Controller) error {
		return ctrl.Resume()
	}))

	r.Post("/:id/finish", authMiddleware, func(c *fiber.Ctx) error {
		ctrl, err := mgr.Get(c.Params("id"))
		if err != nil {
			return errorFor(err)
		}
		rec, err := ctrl.Finish(c.Context())
		if err != nil {
			return errorFor(err)
		}
		mgr.Release(ctrl.ID())
		return c.JSON(rec)
	})

	r.Post("/:id/cancel", authMiddleware, func(c *fiber.Ctx) error {
		ctrl, err := mgr.Get(c.Params("id"))
		if err != nil {
			return errorFor(err)
		}
		if err := ctrl.Cancel(); err != nil {
			return errorFor(err)
		}
		mgr.Release(ctrl.ID())
		return c.JSON(fiber.Map{"state": StateCancelled})
	})

	r.Post("/:id/samples", authMiddleware, func(c *fiber.Ctx) error {
		var sample telemetry.Sample
		if err := c.BodyParser(&sample); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if sample.Timestamp.IsZero() {
			sample.Timestamp = time.Now()
		}
		ctrl, err := mgr.Get(c.Params("id"))
		if err != nil {
			return errorFor(err)
		}
		if err := ctrl.Ingest(sample); err != nil {
			return errorFor(err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Post("/:id/ticks", authMiddleware, func(c *fiber.Ctx) error {
		var req tickRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.ElapsedMs <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "elapsed_ms must be positive")
		}
		ctrl, err := mgr.Get(c.Params("id"))
		if err != nil {
			return errorFor(err)
		}
		if err := ctrl.Tick(time.Duration(req.ElapsedMs) * time.Millisecond); err != nil {
			return errorFor(err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Post("/:id/skip-phase", authMiddleware, command(mgr, func(ctrl *Controller) error {
		return ctrl.SkipPhase()
	}))

	r.Post("/:id/sets", authMiddleware, func(c *fiber.Ctx) error {
		var payload timer.SetPayload
		if err := c.BodyParser(&payload); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		ctrl, err := mgr.Get(c.Params("id"))
		if err != nil {
			return errorFor(err)
		}
		if err := ctrl.CompleteSetEarly(payload); err != nil {
			return errorFor(err)
		}
		return c.JSON(ctrl.Live())
	})

	r.Get("/:id/live", func(c *fiber.Ctx) error {
		ctrl, err := mgr.Get(c.Params("id"))
		if err != nil {
			return errorFor(err)
		}
		return c.JSON(ctrl.Live())
	})
}

func command(mgr *Manager, fn func(*Controller) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctrl, err := mgr.Get(c.Params("id"))
		if err != nil {
			return errorFor(err)
		}
		if err := fn(ctrl); err != nil {
			return errorFor(err)
		}
		return c.JSON(ctrl.Live())
	}
}

func errorFor(err error) *fiber.Error {
	switch {
	case errors.Is(err, ErrUnknownSession), errors.Is(err, ErrNotRecoverable):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyActive),
		errors.Is(err, ErrNotActive),
		errors.Is(err, ErrNotPaused),
		errors.Is(err, ErrNoActiveSession),
		errors.Is(err, timer.ErrNotUserTerminable),
		errors.Is(err, timer.ErrNotWorkPhase),
		errors.Is(err, timer.ErrSequenceComplete):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
