// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 负责打开 SQL 数据库并管理 GORM 连接池，供 GORM 集合存储使用。

# 方言

Dialector 根据 config.DatabaseConfig.Driver 选择方言：

  - postgres：gorm.io/driver/postgres
  - mysql：gorm.io/driver/mysql
  - sqlite：github.com/glebarez/sqlite（纯 Go，无需 cgo）

# 连接池

PoolManager 持有 GORM 实例与底层 sql.DB，负责连接数与生命周期
配置、后台探活，以及 WithTransaction / WithTransactionRetry 两种
事务执行方式。Close 可重复调用并停止探活协程。
*/
package database
