package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the public page index.
	RouteRoot = "/"
	// RouteSite is the member page listing.
	RouteSite = "/site"
	// RouteAdmin is the admin panel (page-creation form).
	RouteAdmin = "/admin"
	// RouteAdd is the page-creation route.
	RouteAdd = "/add"
	// RoutePage is the single-page view pattern.
	RoutePage = "/page/{id}"
	// RouteDelete is the page-deletion pattern.
	RouteDelete = "/delete/{id}"
	// RouteAddUser is the user-creation route.
	RouteAddUser = "/add_user"
	// RouteDeleteUser is the user-deletion route.
	RouteDeleteUser = "/delete_user"
	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteHealth is the health check route.
	RouteHealth = "/health"
)

const (
	redirectRoot  = RouteRoot
	redirectSite  = RouteSite
	redirectAdmin = RouteAdmin
	redirectLogin = RouteLogin
)
