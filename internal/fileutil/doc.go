// Package fileutil holds file copy helpers shared by the transfer engine.
package fileutil
