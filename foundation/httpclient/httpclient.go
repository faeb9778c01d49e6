// Package httpclient retrieves remote schedule files and their freshness metadata
package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// schedule zip downloads can take a while on slow agency servers
var client = &http.Client{Timeout: 5 * time.Minute}

// RemoteFileInfo identifies a version of a remote file
type RemoteFileInfo struct {
	ETag                  string
	LastModifiedTimestamp int64
	Path                  string
}

// IsDifferent reports whether the remote file differs from a previously recorded
// version, trusting the ETag when the server provides one
func (df *RemoteFileInfo) IsDifferent(etag string, lastModifiedTimestamp int64) bool {
	if len(df.ETag) > 0 {
		return df.ETag != etag
	}
	return df.LastModifiedTimestamp != lastModifiedTimestamp
}

// GetRemoteFileInfo retrieves the version of the file at url with a HEAD request
func GetRemoteFileInfo(url string) (RemoteFileInfo, error) {
	resp, err := client.Head(url)
	if err != nil {
		return RemoteFileInfo{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return RemoteFileInfo{}, fmt.Errorf("HEAD %s returned status %d", url, resp.StatusCode)
	}
	return remoteFileInfoFromResponse(url, resp), nil
}

func remoteFileInfoFromResponse(url string, resp *http.Response) RemoteFileInfo {
	result := RemoteFileInfo{
		Path: url,
		ETag: resp.Header.Get("ETag"),
	}
	if lastModified := resp.Header.Get("Last-Modified"); lastModified != "" {
		if parsedTime, err := time.Parse(time.RFC1123, lastModified); err == nil {
			result.LastModifiedTimestamp = parsedTime.Unix()
		}
	}
	return result
}

// DownloadedFile describes a remote file saved to the local file system
type DownloadedFile struct {
	RemoteFileInfo RemoteFileInfo
	LocalFilePath  string
	Size           int64
	DownloadedAt   time.Time
}

// DownloadRemoteFile saves the file at url to destinationFileName, returning the
// size and version information of what was retrieved
func DownloadRemoteFile(destinationFileName string, url string) (*DownloadedFile, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s returned status %d", url, resp.StatusCode)
	}

	out, err := os.Create(destinationFileName)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = out.Close()
	}()

	bytesWritten, err := io.Copy(out, resp.Body)
	if err != nil {
		return nil, err
	}

	return &DownloadedFile{
		RemoteFileInfo: remoteFileInfoFromResponse(url, resp),
		LocalFilePath:  destinationFileName,
		Size:           bytesWritten,
		DownloadedAt:   time.Now(),
	}, nil
}
