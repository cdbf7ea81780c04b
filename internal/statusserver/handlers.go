package statusserver

import (
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/aaronromeo/imappush/internal/push"
)

// FolderView is one entry of GET /folders.
type FolderView struct {
	Name       string     `json:"name"`
	Running    bool       `json:"running"`
	Idling     bool       `json:"idling"`
	PushActive bool       `json:"push_active"`
	LastSync   *time.Time `json:"last_sync,omitempty"`
}

// Health reports liveness.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Folders lists every pushed folder.
func Folders(c *fiber.Ctx) error {
	pusher, activity, err := deps(c)
	if err != nil {
		return err
	}

	statuses := pusher.Folders()
	views := make([]FolderView, 0, len(statuses))
	for _, st := range statuses {
		view := FolderView{
			Name:       st.Name,
			Running:    st.Running,
			Idling:     st.Idling,
			PushActive: activity.Active(st.Name),
		}
		if at, ok := activity.LastSync(st.Name); ok {
			view.LastSync = &at
		}
		views = append(views, view)
	}
	return c.JSON(views)
}

// Refresh restarts IDLE on every folder.
func Refresh(c *fiber.Ctx) error {
	pusher, _, err := deps(c)
	if err != nil {
		return err
	}
	pusher.Refresh()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"refreshed": "all"})
}

func RefreshFolder(c *fiber.Ctx) error {
	pusher, _, err := deps(c)
	if err != nil {
		return err
	}
	// Folder names use "/" as hierarchy delimiter, so they arrive escaped.
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := pusher.RefreshFolder(name); err != nil {
		if errors.Is(err, push.ErrUnknownFolder) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"refreshed": name})
}

func deps(c *fiber.Ctx) (Pusher, Activity, error) {
	pusher, ok := c.Locals(localsPusher).(Pusher)
	if !ok {
		return nil, nil, fiber.NewError(fiber.StatusInternalServerError, "could not retrieve pusher")
	}
	activity, ok := c.Locals(localsActivity).(Activity)
	if !ok {
		return nil, nil, fiber.NewError(fiber.StatusInternalServerError, "could not retrieve receiver")
	}
	return pusher, activity, nil
}
