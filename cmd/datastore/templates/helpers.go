package templates

import (
	"strconv"
	"strings"

	"github.com/delaneyj/datastore/router"
)

func blockID(b router.BlockInfo) string {
	return "block:" + strconv.Itoa(b.Index)
}

func blockLabel(b router.BlockInfo) string {
	var sb strings.Builder
	if b.Name != "" {
		sb.WriteString(b.Name)
	} else {
		sb.WriteString("#")
		sb.WriteString(strconv.Itoa(b.Index))
	}
	sb.WriteString("\ndepth ")
	sb.WriteString(strconv.Itoa(b.Depth))
	return sb.String()
}
