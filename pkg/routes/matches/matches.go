package matches

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/query"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Register registers match routes
func Register(g *echo.Group) {
	g.POST("/projects/:id/matches/compute", ComputeProjectMatches)
	g.GET("/projects/:id/matches", GetProjectMatches)
	g.GET("/products/:id/matches", GetProductMatchedProjects)
	g.GET("/images/:id/matches", GetImageMatches)
}

// ComputeMatchesRequest is the request body for computing a project's matches
type ComputeMatchesRequest struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=1"`
}

// ComputeProjectMatches scores a project against the given candidate products
// and upserts the results
func ComputeProjectMatches(c echo.Context) error {
	ctx := c.Request().Context()

	projectID := c.Param("id")
	if projectID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "project id is required")
	}

	req, err := utils.BindRequest[ComputeMatchesRequest](c)
	if err != nil {
		return err
	}

	ctx, engine, err := ectoinject.GetContext[*matching.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := engine.ComputeAndUpsertMatches(ctx, projectID, req.ProductIDs)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// GetProjectMatches returns a page of a project's matched products
func GetProjectMatches(c echo.Context) error {
	ctx := c.Request().Context()

	projectID := c.Param("id")
	tier := c.QueryParam("tier")
	limit, offset, err := pagingParams(c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*query.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	page, err := svc.GetProjectMatches(ctx, projectID, tier, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, page)
}

// GetProductMatchedProjects returns a page of projects matched to a product
func GetProductMatchedProjects(c echo.Context) error {
	ctx := c.Request().Context()

	productID := c.Param("id")
	tier := c.QueryParam("tier")
	limit, offset, err := pagingParams(c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*query.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	page, err := svc.GetProductMatchedProjects(ctx, productID, tier, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, page)
}

// GetImageMatches returns matches that cite the image as evidence
func GetImageMatches(c echo.Context) error {
	ctx := c.Request().Context()

	imageID := c.Param("id")
	tier := c.QueryParam("tier")
	limit, _, err := pagingParams(c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*query.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	records, err := svc.GetImageMatches(ctx, imageID, tier, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"matches": records})
}

func pagingParams(c echo.Context) (limit, offset int, err error) {
	limit, err = intQueryParam(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err = intQueryParam(c, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intQueryParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, httperror.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return value, nil
}
