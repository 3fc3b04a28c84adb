package config

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// engine tools write names in cp1251
var cuurentCharMap *charmap.Charmap = charmap.Windows1251
var charMapLock sync.RWMutex

func SetEncoding(name string) error {
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			if cm.String() == name {
				charMapLock.Lock()
				cuurentCharMap = cm
				charMapLock.Unlock()
				return nil
			}
		}
	}
	return errors.Errorf("Failed to find encoding %q", name)
}

func ListEncodings() []string {
	list := make([]string, 0)
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			list = append(list, cm.String())
		}
	}
	return list
}

func GetEncoding() *charmap.Charmap {
	charMapLock.RLock()
	defer charMapLock.RUnlock()
	return cuurentCharMap
}
