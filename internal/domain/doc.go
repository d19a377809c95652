// Package domain contains the core entities of the crewboard application:
// users, projects, project memberships, tasks, comments, attachments,
// notifications and derived project statistics. Entities validate themselves
// and carry no persistence or transport concerns.
package domain
