// Package preferences stores client preferences in a YAML file next to the
// mirror database. Sync only touches the Remote section.
package preferences
