package roles

import "crewbase-backend/internal/pkg/constants"

// Route is a frontend landing destination.
type Route string

const (
	RoutePlatformConsole Route = "/console"
	RouteOrgDashboard    Route = "/dashboard"
	RouteReAuthenticate  Route = "/login"
)

// LandingRoute maps a role set to the destination shown after a successful
// authentication. Total: every input maps to a defined output.
func LandingRoute(roleSet []string) Route {
	if constants.HasRole(roleSet, constants.SuperAdmin) {
		return RoutePlatformConsole
	}
	for _, r := range roleSet {
		switch r {
		case constants.Admin, constants.Manager, constants.Member:
			return RouteOrgDashboard
		}
	}
	return RouteReAuthenticate
}
