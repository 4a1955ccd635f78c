package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/suykerbuyk/flywheel/internal/friction"
	"github.com/suykerbuyk/flywheel/internal/funnel"
	"github.com/suykerbuyk/flywheel/internal/service"
)

func badBody() error {
	return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
}

func (s *Server) health(c *fiber.Ctx) error {
	counts, err := s.svc.Store().Counts(c.UserContext())
	if err != nil {
		s.log.Error("health check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{
		"status":    "ok",
		"frictions": counts.Frictions,
		"analyses":  counts.Analyses,
	})
}

type classifyRequest struct {
	Description string `json:"description"`
}

func (s *Server) classify(c *fiber.Ctx) error {
	var req classifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody()
	}
	return c.JSON(s.svc.Classify(req.Description))
}

func (s *Server) summary(c *fiber.Ctx) error {
	records, err := s.svc.Frictions(c.UserContext(), "")
	if err != nil {
		return err
	}
	summary := friction.Summarize(records)
	if summary == nil {
		summary = []friction.StageSummary{}
	}
	return c.JSON(summary)
}

type createFrictionRequest struct {
	Stage       string `json:"stage"`
	Description string `json:"description"`
}

func (s *Server) createFriction(c *fiber.Ctx) error {
	var req createFrictionRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody()
	}
	r, err := s.svc.AddFriction(c.UserContext(), friction.Stage(strings.TrimSpace(req.Stage)), req.Description)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

func (s *Server) listFrictions(c *fiber.Ctx) error {
	records, err := s.svc.Frictions(c.UserContext(), friction.Stage(c.Query("stage")))
	if err != nil {
		return err
	}
	if c.QueryBool("sorted") {
		friction.SortByPriority(records)
	}
	return c.JSON(records)
}

func (s *Server) showFriction(c *fiber.Ctx) error {
	r, err := s.svc.Friction(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (s *Server) deleteFriction(c *fiber.Ctx) error {
	if err := s.svc.RemoveFriction(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type createAnalysisRequest struct {
	Label       string `json:"label"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Attract     int    `json:"attract"`
	Engage      int    `json:"engage"`
	Delight     int    `json:"delight"`
}

func (r createAnalysisRequest) analysis() (funnel.Analysis, error) {
	start, err := parseDate("period_start", r.PeriodStart)
	if err != nil {
		return funnel.Analysis{}, err
	}
	end, err := parseDate("period_end", r.PeriodEnd)
	if err != nil {
		return funnel.Analysis{}, err
	}
	return funnel.Analysis{
		Label:       r.Label,
		PeriodStart: start,
		PeriodEnd:   end,
		Metrics:     funnel.Metrics{Attract: r.Attract, Engage: r.Engage, Delight: r.Delight},
	}, nil
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(funnel.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, &service.ValidationError{Field: field, Message: "want a YYYY-MM-DD date", Err: err}
	}
	return t, nil
}

func (s *Server) createAnalysis(c *fiber.Ctx) error {
	var req createAnalysisRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody()
	}
	a, err := req.analysis()
	if err != nil {
		return err
	}
	saved, err := s.svc.SaveAnalysis(c.UserContext(), a)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (s *Server) listAnalyses(c *fiber.Ctx) error {
	list, err := s.svc.Analyses(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *Server) showAnalysis(c *fiber.Ctx) error {
	a, err := s.svc.Analysis(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(a)
}

type pointsResponse struct {
	Analysis   funnel.Analysis `json:"analysis"`
	Conversion float64         `json:"conversion"`
	Points     []funnel.Point  `json:"points"`
}

func (s *Server) analysisPoints(c *fiber.Ctx) error {
	a, err := s.svc.Analysis(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	points := funnel.Points(a.Metrics)
	if points == nil {
		points = []funnel.Point{}
	}
	return c.JSON(pointsResponse{
		Analysis:   a,
		Conversion: a.Metrics.OverallConversion(),
		Points:     points,
	})
}

func (s *Server) deleteAnalysis(c *fiber.Ctx) error {
	if err := s.svc.RemoveAnalysis(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) compare(c *fiber.Ctx) error {
	pc, err := s.svc.CompareAnalyses(c.UserContext(), c.Query("current"), c.Query("previous"))
	if err != nil {
		return err
	}
	return c.JSON(pc)
}
