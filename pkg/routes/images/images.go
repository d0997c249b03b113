package images

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/pipeline"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Register registers image routes
func Register(g *echo.Group) {
	g.POST("/:id/process", ProcessImage)
}

// ProcessImageRequest is the request body for processing an image
type ProcessImageRequest struct {
	Source  string `json:"source" validate:"required,oneof=project product"`
	URL     string `json:"url" validate:"required,url"`
	AltText string `json:"alt_text,omitempty"`
}

// ProcessImage computes and stores the scoring signal for one image. Safe to
// call repeatedly; reprocessing overwrites the stored signal.
func ProcessImage(c echo.Context) error {
	ctx := c.Request().Context()

	imageID := c.Param("id")
	if imageID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "image id is required")
	}

	req, err := utils.BindRequest[ProcessImageRequest](c)
	if err != nil {
		return err
	}

	ctx, processor, err := ectoinject.GetContext[*pipeline.Processor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := processor.ProcessImage(ctx, imageID, models.ImageSource(req.Source), req.URL, req.AltText); err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "processed", "image_id": imageID})
}
