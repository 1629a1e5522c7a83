package conf

import (
	"fmt"
	"time"
)

// Bootstrap 配置根节点
type Bootstrap struct {
	Server       Server `toml:"Server" comment:"服务配置"`
	Data         Data   `toml:"Data" comment:"数据存储"`
	Log          Log    `toml:"Log" comment:"日志"`
	Debug        bool   `toml:"Debug" comment:"调试模式，输出文本日志与请求体"`
	BuildVersion string `toml:"-"`
	ConfigDir    string `toml:"-"`
}

type Server struct {
	HTTP      ServerHTTP      `toml:"HTTP"`
	Recording ServerRecording `toml:"Recording" comment:"录像索引"`
	Review    ServerReview    `toml:"Review" comment:"回放时间轴与事件卡片"`
}

type ServerHTTP struct {
	Port    int      `toml:"Port" comment:"http 端口"`
	Timeout Duration `toml:"Timeout" comment:"请求读写超时"`
}

type ServerRecording struct {
	Disabled           bool    `toml:"Disabled" comment:"关闭录像清理"`
	StorageDir         string  `toml:"StorageDir" comment:"录像文件根目录"`
	RetainDays         int     `toml:"RetainDays" comment:"录像保留天数，0 表示不按天数清理"`
	DiskUsageThreshold float64 `toml:"DiskUsageThreshold" comment:"磁盘使用率超过该百分比时删除最旧录像，0 表示不检查"`
}

type ServerReview struct {
	DetailLevel     string  `toml:"DetailLevel" comment:"默认卡片详细级别 normal/extra/full"`
	Timezone        string  `toml:"Timezone" comment:"按哪个时区划分日与小时，为空使用系统时区"`
	GroupSeconds    float64 `toml:"GroupSeconds" comment:"同一通道事件合并为一张卡片的窗口（秒）"`
	PageSize        int     `toml:"PageSize" comment:"读取事件时每页条数"`
	EventRetainDays int     `toml:"EventRetainDays" comment:"事件保留天数，0 表示不清理"`
}

// Location 解析时区，非法时返回错误
func (r ServerReview) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

type Data struct {
	Database Database `toml:"Database"`
}

type Database struct {
	Dsn             string   `toml:"Dsn" comment:"sqlite 文件路径或 postgres:// mysql:// 连接串"`
	MaxIdleConns    int32    `toml:"MaxIdleConns"`
	MaxOpenConns    int32    `toml:"MaxOpenConns"`
	ConnMaxLifetime Duration `toml:"ConnMaxLifetime"`
	SlowThreshold   Duration `toml:"SlowThreshold" comment:"慢查询阈值"`
}

type Log struct {
	Dir          string   `toml:"Dir" comment:"日志目录，为空只输出到控制台"`
	Level        string   `toml:"Level" comment:"debug/info/warn/error"`
	MaxAge       Duration `toml:"MaxAge" comment:"日志保留时长"`
	RotationTime Duration `toml:"RotationTime" comment:"日志切分间隔"`
}

// DefaultConfig 默认配置
func DefaultConfig() Bootstrap {
	return Bootstrap{
		Server: Server{
			HTTP: ServerHTTP{
				Port:    15123,
				Timeout: Duration(60 * time.Second),
			},
			Recording: ServerRecording{
				StorageDir:         "./recordings",
				RetainDays:         7,
				DiskUsageThreshold: 95,
			},
			Review: ServerReview{
				DetailLevel:     "normal",
				GroupSeconds:    120,
				PageSize:        500,
				EventRetainDays: 30,
			},
		},
		Data: Data{
			Database: Database{
				Dsn:             "./configs/data.db",
				MaxIdleConns:    10,
				MaxOpenConns:    50,
				ConnMaxLifetime: Duration(6 * time.Hour),
				SlowThreshold:   Duration(200 * time.Millisecond),
			},
		},
		Log: Log{
			Dir:          "./logs",
			Level:        "info",
			MaxAge:       Duration(7 * 24 * time.Hour),
			RotationTime: Duration(12 * time.Hour),
		},
	}
}
