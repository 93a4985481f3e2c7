// Package addons provides reusable controller add-ons: self-contained
// components that inject commands into each frame and digest the build's
// responses into a convenient cached view.
package addons
