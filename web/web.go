// Package web 内嵌管理后台的静态页面与脚本
package web

import (
	"embed"
	"io/fs"
)

//go:embed pages/*.html static/*
var assets embed.FS

// Page 读取 pages 目录下的页面
func Page(name string) ([]byte, error) {
	return assets.ReadFile("pages/" + name)
}

// Static 返回 static 目录的文件系统
func Static() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		// static 目录随二进制一同编译，不会缺失
		panic(err)
	}
	return sub
}
