// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/coreos/pkg/capnslog"
	"github.com/spf13/cobra"

	"github.com/flatcar-linux/otaextract/cli"
)

var plog = capnslog.NewPackageLogger("github.com/flatcar-linux/otaextract", "otaextract")

var root = &cobra.Command{
	Use:   "otaextract [command]",
	Short: "Extract partition images out of an Android/ChromeOS OTA payload",
}

func main() {
	cli.Execute(root)
}
