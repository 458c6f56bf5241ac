package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loantrack-core/internal/domain/entity"
	"loantrack-core/internal/domain/repository"
	"loantrack-core/internal/usecase"
)

// CommandParser and ActionRunner are the two usecases this layer drives.
type CommandParser interface {
	Parse(ctx context.Context, sessionID, command string) (*entity.ParsedCommand, error)
	Today() string
}

type ActionRunner interface {
	Execute(ctx context.Context, va *entity.ValidatedAction) (*entity.ActionResult, error)
}

type Handler struct {
	parser   CommandParser
	executor ActionRunner
	chatLog  repository.ChatLog
	log      *zap.Logger

	parties      []string
	defaultPayer string
	timezone     *time.Location
}

func NewHandler(parser CommandParser, executor ActionRunner, chatLog repository.ChatLog, log *zap.Logger, parties []string, defaultPayer string, tz *time.Location) *Handler {
	return &Handler{
		parser:       parser,
		executor:     executor,
		chatLog:      chatLog,
		log:          log,
		parties:      parties,
		defaultPayer: defaultPayer,
		timezone:     tz,
	}
}

type parseRequest struct {
	Command   any    `json:"command"`
	SessionID string `json:"session_id"`
}

// HandleParse runs one command through the parse pipeline. The response is
// always the five-field ParsedCommand shape, success or failure; only the
// status code and action="unknown" distinguish errors.
func (h *Handler) HandleParse(c *fiber.Ctx) error {
	var req parseRequest
	if err := c.BodyParser(&req); err != nil {
		return parseFailure(c, fiber.StatusBadRequest, "invalid request body")
	}

	command, ok := req.Command.(string)
	if !ok || command == "" {
		return parseFailure(c, fiber.StatusBadRequest, "command must be a non-empty string")
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "default"
	}

	cmd, err := h.parser.Parse(c.Context(), sessionID, command)
	if err != nil {
		return parseFailure(c, parseStatus(err), err.Error())
	}

	return c.Status(fiber.StatusOK).JSON(cmd)
}

func parseStatus(err error) int {
	switch {
	case errors.Is(err, entity.ErrInvalidRequest),
		errors.Is(err, entity.ErrMissingFields):
		return fiber.StatusBadRequest
	case errors.Is(err, entity.ErrRateLimitExceeded):
		return fiber.StatusTooManyRequests
	case errors.Is(err, entity.ErrNoJSON),
		errors.Is(err, entity.ErrContractViolation):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func parseFailure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(entity.ParsedCommand{
		Action:           entity.ActionUnknown,
		Parameters:       map[string]any{},
		Message:          message,
		NeedFollowup:     false,
		FollowupQuestion: nil,
	})
}

// HandleAction is the single RPC-style endpoint dispatched by the body's
// action field. It re-validates everything regardless of where the call came
// from; the parse endpoint is not the only caller.
func (h *Handler) HandleAction(c *fiber.Ctx) error {
	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return actionFailure(c, fiber.StatusBadRequest, "invalid request body")
	}

	actionStr, ok := body["action"].(string)
	if !ok || actionStr == "" {
		return actionFailure(c, fiber.StatusBadRequest, "action is required")
	}

	va, err := usecase.ValidateAction(entity.Action(actionStr), body, usecase.Defaults{
		Today:   time.Now().In(h.timezone).Format("2006-01-02"),
		Payer:   h.defaultPayer,
		Parties: h.parties,
	})
	if err != nil {
		return actionFailure(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.executor.Execute(c.Context(), va)
	if err != nil {
		if errors.Is(err, entity.ErrLoanNotFound) {
			return actionFailure(c, fiber.StatusNotFound, err.Error())
		}
		h.log.Error("action execution failed",
			zap.String("action", actionStr),
			zap.Error(err),
		)
		return actionFailure(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

func actionFailure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// HandleHistory returns the recent turns of one chat session, oldest first.
func (h *Handler) HandleHistory(c *fiber.Ctx) error {
	sessionID := c.Params("session")
	turns, err := h.chatLog.Recent(c.Context(), sessionID, 50)
	if err != nil {
		return actionFailure(c, fiber.StatusInternalServerError, "could not load history")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    turns,
	})
}
