// Package campaign implements drip-campaign lifecycle management.
//
// The service layer contains all business logic for creating, scheduling,
// resending, and reporting on email campaigns. It depends on repository
// interfaces defined in this package and should never import from api/.
//
// Repository implementations live in repository/postgres/.
package campaign
