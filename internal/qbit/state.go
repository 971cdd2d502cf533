package qbit

import "github.com/fetcharr/fetcharr/internal/data"

// Status maps the torrent's native state to the download status enum.
func (t Torrent) Status() (data.DownloadStatus, bool) {
	return MapState(t.State)
}

// MapState translates a qBittorrent native state string into the download
// status enum. The mapping is total over the states the WebUI documents;
// ok is false for anything unrecognized so the caller can keep the stored
// status instead of corrupting it.
func MapState(state string) (status data.DownloadStatus, ok bool) {
	switch state {
	case "allocating", "downloading", "metaDL", "stalledDL", "checkingDL",
		"forcedDL", "checkingResumeData", "moving":
		return data.StatusDownloading, true
	case "queuedDL":
		return data.StatusQueued, true
	case "pausedDL", "stoppedDL":
		return data.StatusPaused, true
	case "uploading", "stalledUP", "checkingUP", "forcedUP", "queuedUP",
		"pausedUP", "stoppedUP":
		// seeding in any form means the payload is fully downloaded
		return data.StatusCompleted, true
	case "error", "missingFiles", "unknown":
		return data.StatusError, true
	}
	return "", false
}
