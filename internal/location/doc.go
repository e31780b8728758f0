// Package location holds the spatial records (locations and areas) the
// engine reads when resolving sameArea/sameLocation scoping for temporal
// conditions. The records themselves are owned and edited externally.
package location
