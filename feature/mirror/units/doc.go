// Package units holds the entity sync units and the Orchestrator that runs
// them in dependency order.
//
// A pass fetches the root record and reconciles it. Only a changed (or
// missing) root descends further:
//
//	root
//	├── user, lists, list positions   fetched concurrently
//	├── lists                          each changed list syncs its tasks
//	│   └── tasks                      4 collections + 2 position arrays
//	├── hashtags                       re-derived from stored titles
//	└── user                           a changed user syncs
//	    ├── preferences                remote settings to prefs.yaml
//	    └── reminders
//
// Remote fetches share one bounded reconcile.Pool. Every parent row is
// written only after its children were reconciled.
package units
