package handler // declare the package name; contains HTTP handlers

import (
    "net/http" // net/http provides status codes and response helpers

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health returns the health-check endpoint used by load balancers and
// monitoring systems.  It reports which store driver the process runs with
// so a misconfigured deployment is visible at a glance.
func Health(driver string) echo.HandlerFunc {
    return func(c echo.Context) error {
        return c.JSON(http.StatusOK, echo.Map{"status": "ok", "store": driver})
    }
}
