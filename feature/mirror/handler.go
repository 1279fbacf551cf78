package mirror

import (
	"strconv"
	"time"

	"task-mirror/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves the mirror over HTTP.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the mirror routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/lists", h.HandleLists)
	app.Get("/lists/:id/tasks", h.HandleListTasks)
	app.Get("/tasks/search", h.HandleSearch)
	app.Get("/tasks/due", h.HandleDue)
	app.Get("/tasks/upcoming", h.HandleUpcoming)
	app.Get("/tasks/:id/subtasks", h.HandleSubtasks)
	app.Get("/tasks/:id/reminders", h.HandleReminders)
	app.Get("/hashtags", h.HandleHashtags)
	app.Get("/preferences", h.HandlePreferences)
	app.Post("/sync", h.HandleSync)
	app.Get("/sync/status", h.HandleSyncStatus)
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	logger.WithRayID(h.logger, c).Error(msg, zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// idParam parses the :id route parameter. On failure it has already
// written a 400 response and ok is false.
func idParam(c *fiber.Ctx) (id int64, ok bool, err error) {
	id, perr := strconv.ParseInt(c.Params("id"), 10, 64)
	if perr != nil {
		return 0, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid id",
		})
	}
	return id, true, nil
}

// HandleLists returns all lists in display order.
// @Summary List lists
// @Tags lists
// @Produce json
// @Success 200 {array} models.List
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /lists [get]
func (h *Handler) HandleLists(c *fiber.Ctx) error {
	lists, err := h.service.Queries().Lists(c.Context())
	if err != nil {
		return h.fail(c, "Failed to read lists", err)
	}
	return c.JSON(lists)
}

// HandleListTasks returns the top-level tasks of a list.
// @Summary Tasks of a list
// @Tags lists
// @Produce json
// @Param id path int true "List ID"
// @Param completed query bool false "Include completed tasks"
// @Success 200 {array} models.Task
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /lists/{id}/tasks [get]
func (h *Handler) HandleListTasks(c *fiber.Ctx) error {
	id, ok, err := idParam(c)
	if !ok {
		return err
	}
	tasks, err := h.service.Queries().TasksInList(c.Context(), id, c.QueryBool("completed"))
	if err != nil {
		return h.fail(c, "Failed to read tasks", err)
	}
	return c.JSON(tasks)
}

// HandleSubtasks returns the subtasks of a task.
// @Summary Subtasks of a task
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {array} models.Task
// @Router /tasks/{id}/subtasks [get]
func (h *Handler) HandleSubtasks(c *fiber.Ctx) error {
	id, ok, err := idParam(c)
	if !ok {
		return err
	}
	tasks, err := h.service.Queries().Subtasks(c.Context(), id)
	if err != nil {
		return h.fail(c, "Failed to read subtasks", err)
	}
	return c.JSON(tasks)
}

// HandleReminders returns the reminders of a task.
// @Summary Reminders of a task
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {array} models.Reminder
// @Router /tasks/{id}/reminders [get]
func (h *Handler) HandleReminders(c *fiber.Ctx) error {
	id, ok, err := idParam(c)
	if !ok {
		return err
	}
	reminders, err := h.service.Queries().Reminders(c.Context(), id)
	if err != nil {
		return h.fail(c, "Failed to read reminders", err)
	}
	return c.JSON(reminders)
}

// HandleSearch searches incomplete tasks by title.
// @Summary Search tasks
// @Tags tasks
// @Produce json
// @Param q query string false "Words to match"
// @Success 200 {array} TaskView
// @Router /tasks/search [get]
func (h *Handler) HandleSearch(c *fiber.Ctx) error {
	tasks, err := h.service.Queries().Search(c.Context(), c.Query("q"))
	if err != nil {
		return h.fail(c, "Task search failed", err)
	}
	return c.JSON(tasks)
}

// HandleDue returns tasks due today or earlier.
// @Summary Due tasks
// @Tags tasks
// @Produce json
// @Param q query string false "Words to match"
// @Param hoist query bool false "Sort tasks with missed recurrences first"
// @Success 200 {array} TaskView
// @Router /tasks/due [get]
func (h *Handler) HandleDue(c *fiber.Ctx) error {
	tasks, err := h.service.Queries().Due(c.Context(), h.service.now(), c.Query("q"), c.QueryBool("hoist"))
	if err != nil {
		return h.fail(c, "Failed to read due tasks", err)
	}
	return c.JSON(tasks)
}

// HandleUpcoming returns tasks due within the coming days.
// @Summary Upcoming tasks
// @Tags tasks
// @Produce json
// @Param days query int false "Window in days (default 7)"
// @Success 200 {array} TaskView
// @Router /tasks/upcoming [get]
func (h *Handler) HandleUpcoming(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)
	if days <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "days must be positive"})
	}
	tasks, err := h.service.Queries().Upcoming(c.Context(), h.service.now(), days)
	if err != nil {
		return h.fail(c, "Failed to read upcoming tasks", err)
	}
	return c.JSON(tasks)
}

// HandleHashtags returns hashtags matching a prefix.
// @Summary Hashtags
// @Tags hashtags
// @Produce json
// @Param prefix query string false "Tag text, with or without #"
// @Success 200 {array} models.Hashtag
// @Router /hashtags [get]
func (h *Handler) HandleHashtags(c *fiber.Ctx) error {
	tags, err := h.service.Queries().Hashtags(c.Context(), c.Query("prefix"))
	if err != nil {
		return h.fail(c, "Failed to read hashtags", err)
	}
	return c.JSON(tags)
}

// HandlePreferences returns local preferences with mirrored remote settings.
// @Summary Preferences
// @Tags preferences
// @Produce json
// @Success 200 {object} preferences.Preferences
// @Router /preferences [get]
func (h *Handler) HandlePreferences(c *fiber.Ctx) error {
	prefs, err := h.service.Preferences().Load()
	if err != nil {
		return h.fail(c, "Failed to read preferences", err)
	}
	return c.JSON(prefs)
}

// HandleSync runs a sync pass. With background=true it returns at once
// with a skipped report when a pass is already running.
// @Summary Sync now
// @Tags sync
// @Produce json
// @Param background query bool false "Do not wait for a running pass"
// @Success 200 {object} units.Report
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sync [post]
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	start := time.Now()

	report, err := h.service.Sync(c.Context(), c.QueryBool("background"))
	if err != nil {
		return h.fail(c, "Sync failed", err)
	}
	l.Info("Sync requested",
		zap.Bool("skipped", report.Skipped),
		zap.Bool("changed", report.Changed()),
		zap.Duration("took", time.Since(start)),
	)
	return c.JSON(report)
}

// HandleSyncStatus reports the last sync and whether one is running.
// @Summary Sync status
// @Tags sync
// @Produce json
// @Success 200 {object} Status
// @Router /sync/status [get]
func (h *Handler) HandleSyncStatus(c *fiber.Ctx) error {
	status, err := h.service.Status()
	if err != nil {
		return h.fail(c, "Failed to read sync status", err)
	}
	return c.JSON(status)
}
