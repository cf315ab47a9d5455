/*
	pic24-fwuploader
	Copyright (c) 2026 The pic24-fwuploader Authors.  All right reserved.

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package devices

import (
	"bytes"
	"crypto"
	_ "crypto/md5"
	_ "crypto/sha1"
	_ "crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/arduino/go-paths-helper"
	"github.com/sirupsen/logrus"
	"go.bug.st/downloader/v2"
)

// Download fetches a catalog file from catalogURL into destDir. When checksum
// is not empty, in the form "SHA-256:<hex>", the file is verified against it.
// The downloaded file must contain at least one valid device line.
func Download(catalogURL string, destDir *paths.Path, checksum string) (*paths.Path, error) {
	u, err := url.Parse(catalogURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse URL %s: %s", catalogURL, err)
	}
	if err := destDir.MkdirAll(); err != nil {
		logrus.Error(err)
		return nil, err
	}

	tmp, err := os.CreateTemp(destDir.String(), "catalog-")
	if err != nil {
		return nil, fmt.Errorf("creating temp file for catalog download: %s", err)
	}
	tmpPath := paths.New(tmp.Name())
	tmp.Close()
	defer tmpPath.Remove()

	d, err := downloader.Download(tmpPath.String(), u.String())
	if err != nil {
		logrus.Error(err)
		return nil, err
	}
	if err := run(d); err != nil {
		logrus.Error(err)
		return nil, err
	}

	if checksum != "" {
		if err := VerifyFileChecksum(checksum, tmpPath); err != nil {
			logrus.Error(err)
			return nil, err
		}
	}

	catalog, err := Load(tmpPath)
	if err != nil {
		return nil, err
	}
	if catalog.Len() == 0 {
		return nil, fmt.Errorf("no valid device found in %s", catalogURL)
	}

	catalogPath := destDir.Join(path.Base(u.Path))
	if err := tmpPath.CopyTo(catalogPath); err != nil {
		return nil, fmt.Errorf("saving downloaded catalog %s: %s", catalogURL, err)
	}
	logrus.Infof("Downloaded catalog with %d devices to %s", catalog.Len(), catalogPath)
	return catalogPath, nil
}

func run(d *downloader.Downloader) error {
	if d == nil {
		// This signal means that the file is already downloaded
		return nil
	}
	if err := d.Run(); err != nil {
		return fmt.Errorf("failed to download file from %s : %s", d.URL, err)
	}
	// The URL is not reachable for some reason
	if d.Resp.StatusCode >= 400 && d.Resp.StatusCode <= 599 {
		return fmt.Errorf("%s", d.Resp.Status)
	}
	return nil
}

// VerifyFileChecksum checks filePath against a checksum in the form "ALGO:hexdigest".
func VerifyFileChecksum(checksum string, filePath *paths.Path) error {
	split := strings.SplitN(checksum, ":", 2)
	if len(split) != 2 {
		return fmt.Errorf("invalid checksum format: %s", checksum)
	}
	digest, err := hex.DecodeString(split[1])
	if err != nil {
		return fmt.Errorf("invalid hash '%s': %s", split[1], err)
	}

	var algo hash.Hash
	switch split[0] {
	case "SHA-256":
		algo = crypto.SHA256.New()
	case "SHA-1":
		algo = crypto.SHA1.New()
	case "MD5":
		algo = crypto.MD5.New()
	default:
		return fmt.Errorf("unsupported hash algorithm: %s", split[0])
	}

	file, err := filePath.Open()
	if err != nil {
		return fmt.Errorf("opening file: %s", err)
	}
	defer file.Close()
	if _, err := io.Copy(algo, file); err != nil {
		return fmt.Errorf("computing hash: %s", err)
	}
	if !bytes.Equal(algo.Sum(nil), digest) {
		return fmt.Errorf("catalog hash differs from expected %s", checksum)
	}
	return nil
}
