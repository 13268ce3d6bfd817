// Package api exposes the account and task endpoints over net/http.
//
// Routes:
//
//	POST   /register     create an account
//	POST   /login        authenticate; the bearer token is returned in the Authorization header
//	POST   /todo         create a task owned by the caller
//	GET    /todouser     list the caller's tasks
//	GET    /todo/{id}    read one task
//	PUT    /todo/{id}    replace description and due_date
//	DELETE /todo/{id}    delete one task
//
// Every failure is a JSON body of the form {"error":{"code":"...","message":"..."}}.
package api
