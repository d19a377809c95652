// Package store defines the persistence interfaces the rest of the
// application depends on, together with the error taxonomy shared by all
// implementations. Concrete backends live under internal/platform/postgres
// (production) and internal/store/memstore (tests).
package store
