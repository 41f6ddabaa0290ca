// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package templates embeds the HTML of the storefront and the admin panel.
package templates

import "embed"

//go:embed base.html pages/*.html partials/*.html admin/*.html
var FS embed.FS
